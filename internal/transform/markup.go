package transform

import (
	"html"
	"regexp"
	"strings"
)

// Rule is one step of the HTML to message markup conversion.
type Rule struct {
	Name  string
	Apply func(string) string
}

func replace(name, pattern, repl string) Rule {
	re := regexp.MustCompile(pattern)
	return Rule{Name: name, Apply: func(s string) string { return re.ReplaceAllString(s, repl) }}
}

// Rules is the fixed, ordered conversion pipeline used by ToMarkdown.
var Rules = []Rule{
	replace("br", `(?i)<br\s*/?>`, "\n"),
	replace("b", `(?is)<b>(.*?)</b>`, "**${1}**"),
	replace("strong", `(?is)<strong>(.*?)</strong>`, "**${1}**"),
	replace("i", `(?is)<i>(.*?)</i>`, "*${1}*"),
	replace("em", `(?is)<em>(.*?)</em>`, "*${1}*"),
	replace("a", `(?is)<a\s[^>]*?href=["']([^"'>]+)["'][^>]*>(.*?)</a>`, "[${2}](${1})"),
	replace("code", `(?is)<code>(.*?)</code>`, "`${1}`"),
	replace("p", `(?is)<p(?:\s[^>]*)?>(.*?)</p>`, "${1}\n\n"),
	replace("video", `(?is)<video\b[^>]*>.*?</video>`, ""),
	replace("img", `(?i)<img\b[^>]*>`, ""),
	replace("tags", `<[^>]+>`, ""),
	{Name: "entities", Apply: html.UnescapeString},
	replace("blank lines", `\n\s*\n\s*\n`, "\n\n"),
	{Name: "trim", Apply: strings.TrimSpace},
}

// ToMarkdown converts the supported tag subset of an HTML fragment into
// chat markup and strips every other tag.
func ToMarkdown(s string) string {
	for _, r := range Rules {
		s = r.Apply(s)
	}
	return s
}

var (
	mediaTagRe = regexp.MustCompile(`(?is)<(img|video)\b[^>]*>`)
	srcAttrRe  = regexp.MustCompile(`(?is)\ssrc\s*=\s*["']([^"'>]+)["']`)
	posterRe   = regexp.MustCompile(`(?is)\sposter\s*=\s*["']([^"'>]+)["']`)
)

// ExtractMedia returns the image and video URLs of an HTML fragment in
// document order with entities decoded. Video tags contribute their src
// before their poster.
func ExtractMedia(s string) []string {
	var urls []string
	for _, m := range mediaTagRe.FindAllStringSubmatch(s, -1) {
		tag := m[0]
		if sm := srcAttrRe.FindStringSubmatch(tag); sm != nil {
			urls = append(urls, html.UnescapeString(sm[1]))
		}
		if strings.EqualFold(m[1], "video") {
			if pm := posterRe.FindStringSubmatch(tag); pm != nil {
				urls = append(urls, html.UnescapeString(pm[1]))
			}
		}
	}
	return urls
}
