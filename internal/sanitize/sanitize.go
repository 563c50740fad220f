// Package sanitize cleans user-supplied text before it is stored. Questions,
// answers, reviews and titles are plain text; course descriptions and FAQ
// answers may carry light formatting.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	textPolicy *bluemonday.Policy
	richPolicy *bluemonday.Policy
	policyOnce sync.Once
)

func policies() (*bluemonday.Policy, *bluemonday.Policy) {
	policyOnce.Do(func() {
		textPolicy = bluemonday.StrictPolicy()

		richPolicy = bluemonday.UGCPolicy()
		richPolicy.RequireNoFollowOnLinks(true)
		richPolicy.AddTargetBlankToFullyQualifiedLinks(true)
	})
	return textPolicy, richPolicy
}

// Text strips every tag from input and trims surrounding space. Entities the
// policy escapes are decoded again, since the result is stored as text and
// escaped on output.
func Text(input string) string {
	if input == "" {
		return ""
	}
	text, _ := policies()
	return strings.TrimSpace(html.UnescapeString(text.Sanitize(input)))
}

// HTML keeps safe formatting (paragraphs, lists, links, emphasis) and drops
// scripts, event handlers and javascript: URLs.
func HTML(input string) string {
	if input == "" {
		return ""
	}
	_, rich := policies()
	return rich.Sanitize(input)
}

// Texts applies Text to each element in place and drops empty results.
func Texts(inputs []string) []string {
	out := inputs[:0]
	for _, s := range inputs {
		if s = Text(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
