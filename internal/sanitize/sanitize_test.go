package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGuidanceStripsFences(t *testing.T) {
	raw := "```html\n<h2>Q</h2><p>A</p>\n```"
	assert.Equal(t, "<h2>Q</h2><p>A</p>", Guidance(raw))

	raw = "```\n<h2>Q</h2>\n<p>A</p>\n```\n"
	assert.Equal(t, "<h2>Q</h2>\n<p>A</p>", Guidance(raw))
}

func TestGuidanceDropsFAQLines(t *testing.T) {
	raw := "<h2>Q</h2>\n<h2>अक्सर पूछे जाने वाले प्रश्न</h2>\n<p>A</p>\n<h2>Frequently Asked Questions</h2>\n<p>See our FAQ</p>"
	assert.Equal(t, "<h2>Q</h2>\n\n<p>A</p>", Guidance(raw))
}

func TestGuidanceAllowList(t *testing.T) {
	raw := `<h2 class="x" onclick="evil()">प्रश्न</h2><script>alert(1)</script><p>उत्तर <a href="https://x">link</a></p><div><ul><li><strong>a</strong></li></ul></div>`
	assert.Equal(t, "<h2>प्रश्न</h2><p>उत्तर link</p><ul><li><strong>a</strong></li></ul>", Guidance(raw))
}

func TestGuidanceKeepsHindiAndMarathi(t *testing.T) {
	raw := "<h2>व्यक्तिमत्व कसे आहे?</h2><p>तुम्ही मेहनती आहात.</p>"
	assert.Equal(t, raw, Guidance(raw))
}

func TestGuidanceIdempotent(t *testing.T) {
	inputs := []string{
		"```html\n<h2>Q</h2><p>A</p>\n```",
		"<p>it's &amp; \"quoted\"</p>",
		"<p>F&#65;Q line</p>\n<p>keep</p>",
		"&#96;&#96;&#96;html\n<p>x</p>",
		"  <h3>x</h3><em>y</em><br/>  ",
		"<<p>>nested<</p>>",
		"<p>x</p>" + strings.Repeat("`", 36),
		"<p>y</p>" + strings.Repeat("```h", 6) + "```html" + strings.Repeat("tml", 6),
		strings.Repeat("```html\n", 12) + "<p>z</p>" + strings.Repeat("\n```", 12),
	}
	for _, in := range inputs {
		once := Guidance(in)
		assert.Equal(t, once, Guidance(once), "input %q", in)
	}
}

func TestGuidancePeelsDeepFences(t *testing.T) {
	assert.Equal(t, "<p>x</p>", Guidance("<p>x</p>"+strings.Repeat("`", 36)))
	assert.Equal(t, "<p>y</p>", Guidance("<p>y</p>"+strings.Repeat("```h", 6)+"```html"+strings.Repeat("tml", 6)))
}

func TestGuidanceEmptyAfterSanitizing(t *testing.T) {
	assert.Equal(t, "", Guidance("```html\n```"))
	assert.Equal(t, "", Guidance("<script>alert(1)</script>"))
	assert.Equal(t, "", Guidance("  \n "))
}

func TestPostContent(t *testing.T) {
	out := PostContent(`<p>Hi <a href="https://example.com">x</a></p><img src="/uploads/a.jpg" onerror="x()"><script>bad()</script>`)
	assert.Contains(t, out, `<img src="/uploads/a.jpg">`)
	assert.Contains(t, out, "nofollow")
	assert.Contains(t, out, "noreferrer")
	assert.NotContains(t, out, "script")
	assert.NotContains(t, out, "onerror")
}

func TestPlainText(t *testing.T) {
	assert.Equal(t, "O'Brien & sons", PlainText(" <b>O'Brien</b> &amp; sons "))
	assert.Equal(t, "", PlainText("<script>x</script>"))
}
