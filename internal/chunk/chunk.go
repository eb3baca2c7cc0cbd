// Package chunk splits message text into pieces that fit the chat
// endpoint's message size limit.
package chunk

import (
	"strings"
	"unicode/utf8"
)

// MaxLen is the maximum chunk length in characters.
const MaxLen = 2000

const ellipsis = "..."

// Split breaks text into chunks of at most MaxLen characters. Paragraphs
// are kept together where possible, oversized paragraphs are split on line
// boundaries and a single line that still does not fit is truncated.
func Split(text string) []string {
	if utf8.RuneCountInString(text) <= MaxLen {
		return []string{text}
	}

	s := &splitter{}
	for _, para := range strings.Split(text, "\n\n") {
		if fits(para) {
			s.add(para, "\n\n")
			continue
		}
		s.flush()
		for _, line := range strings.Split(para, "\n") {
			if fits(line) {
				s.add(line, "\n")
				continue
			}
			s.flush()
			s.emit(truncate(line))
		}
	}
	s.flush()
	return s.chunks
}

type splitter struct {
	chunks []string
	cur    string
}

// add appends part to the running chunk using sep, starting a new chunk
// when the result would exceed MaxLen.
func (s *splitter) add(part, sep string) {
	if s.cur == "" {
		s.cur = part
		return
	}
	if candidate := s.cur + sep + part; fits(candidate) {
		s.cur = candidate
		return
	}
	s.flush()
	s.cur = part
}

func (s *splitter) flush() {
	s.emit(s.cur)
	s.cur = ""
}

func (s *splitter) emit(chunk string) {
	if chunk = strings.TrimSpace(chunk); chunk != "" {
		s.chunks = append(s.chunks, chunk)
	}
}

func fits(s string) bool {
	return utf8.RuneCountInString(s) <= MaxLen
}

func truncate(line string) string {
	r := []rune(line)
	return string(r[:MaxLen-len(ellipsis)]) + ellipsis
}
