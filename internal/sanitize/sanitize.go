// Package sanitize cleans model output and editor content before it reaches
// a browser.
package sanitize

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	guidanceOnce   sync.Once
	guidancePolicy *bluemonday.Policy

	postOnce   sync.Once
	postPolicy *bluemonday.Policy

	plainOnce   sync.Once
	plainPolicy *bluemonday.Policy

	fenceOpenHTML = regexp.MustCompile("```html\\n?")
	fenceTrailing = regexp.MustCompile("(?:```)+\\n?$")
	fenceLine     = regexp.MustCompile("(?m)^```.*\\n?")
	fenceLineEnd  = regexp.MustCompile("(?m)(?:```)+$")

	// Lines mentioning an FAQ section in any site language are dropped.
	faqLine = regexp.MustCompile(`(?im)^.*(?:अक्सर पूछे जाने वाले प्रश्न|वारंवार विचारले जाणारे प्रश्न|frequently asked questions|faq).*$`)
)

// GuidanceTags are the only elements kept in a guidance reading.
var GuidanceTags = []string{"h2", "h3", "p", "ul", "ol", "li", "strong", "em", "b", "i", "br"}

// Guidance turns raw model output into the HTML fragment shown to visitors:
// code fences and FAQ lines are removed, markup outside GuidanceTags is
// stripped (text kept, scripts dropped) and surrounding whitespace trimmed.
// Guidance(Guidance(x)) == Guidance(x): passes repeat until the text stops
// changing. After the first pass every change shortens the text, so the loop
// is bounded by its length.
func Guidance(raw string) string {
	out := guidancePass(raw)
	for range len(out) {
		next := guidancePass(out)
		if next == out {
			break
		}
		out = next
	}
	return out
}

func guidancePass(s string) string {
	s = guidanceSanitizer().Sanitize(s)
	s = fenceOpenHTML.ReplaceAllString(s, "")
	s = fenceTrailing.ReplaceAllString(s, "")
	s = fenceLine.ReplaceAllString(s, "")
	s = fenceLineEnd.ReplaceAllString(s, "")
	s = faqLine.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

func guidanceSanitizer() *bluemonday.Policy {
	guidanceOnce.Do(func() {
		policy := bluemonday.StrictPolicy()
		policy.AllowElements(GuidanceTags...)
		guidancePolicy = policy
	})
	return guidancePolicy
}

// PostContent sanitizes admin-authored blog HTML. It allows the usual
// user-generated-content set (links, images, tables) but no scripts or
// inline handlers.
func PostContent(raw string) string {
	return strings.TrimSpace(postSanitizer().Sanitize(raw))
}

func postSanitizer() *bluemonday.Policy {
	postOnce.Do(func() {
		policy := bluemonday.UGCPolicy()
		policy.RequireNoReferrerOnLinks(true)
		policy.AddTargetBlankToFullyQualifiedLinks(true)
		postPolicy = policy
	})
	return postPolicy
}

// PlainText strips every tag, for titles, excerpts and contact messages.
// Entities are decoded again so the stored value is the text a person typed.
func PlainText(raw string) string {
	plainOnce.Do(func() { plainPolicy = bluemonday.StrictPolicy() })
	return strings.TrimSpace(html.UnescapeString(plainPolicy.Sanitize(raw)))
}
