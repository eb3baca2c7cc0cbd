// Package filter implements the keyword exclusion rules applied to feed entries.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"rss_relay/internal/model"
)

// RegexPrefix marks a keyword as a regular expression.
const RegexPrefix = "re:"

// Rule is a single compiled exclusion keyword.
type Rule struct {
	Keyword string
	re      *regexp.Regexp
}

// Compile turns configured keywords into rules. Plain keywords match as
// case-insensitive substrings; keywords starting with RegexPrefix are
// case-insensitive regular expressions.
func Compile(keywords []string) ([]Rule, error) {
	rules := make([]Rule, 0, len(keywords))
	for _, kw := range keywords {
		r := Rule{Keyword: kw}
		if pattern, ok := strings.CutPrefix(kw, RegexPrefix); ok {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid regex %q: %w", pattern, err)
			}
			r.re = re
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// Match reports the first rule that matches the entry title or summary.
func Match(entry model.Entry, rules []Rule) (Rule, bool) {
	if len(rules) == 0 {
		return Rule{}, false
	}
	text := strings.ToLower(entry.Title + " " + entry.Summary)
	for _, r := range rules {
		if r.matches(text) {
			return r, true
		}
	}
	return Rule{}, false
}

func (r Rule) matches(text string) bool {
	if r.re != nil {
		return r.re.MatchString(text)
	}
	return strings.Contains(text, strings.ToLower(r.Keyword))
}
