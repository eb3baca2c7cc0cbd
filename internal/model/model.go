// Package model defines the domain types used across the application.
package model

// Entry is a single normalized item of the monitored feed.
type Entry struct {
	Title   string
	Link    string
	Summary string
}

// Content is the delivery text produced from an entry body, along with
// the media URLs found in it.
type Content struct {
	Text      string
	MediaURLs []string
}

// Attachment is a downloaded media file ready to be uploaded.
type Attachment struct {
	Filename string
	Data     []byte
}

// Post is one outgoing chat message.
type Post struct {
	Text        string
	Attachments []Attachment
}
