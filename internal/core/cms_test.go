package core

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Kundali Tips":              "kundali-tips",
		"  Saturn  Return -- 2025 ": "saturn-return-2025",
		"Rahu & Ketu: Basics!":      "rahu-ketu-basics",
		"कुंडली मिलान":              "",
		"Already-a-slug":            "already-a-slug",
	}
	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), in)
	}
	assert.True(t, ValidSlug("festival-guide"))
	assert.False(t, ValidSlug("Festival Guide"))
	assert.False(t, ValidSlug(""))
}

func TestParsePostStatus(t *testing.T) {
	status, err := ParsePostStatus("")
	require.NoError(t, err)
	assert.Equal(t, PostStatusDraft, status)

	status, err = ParsePostStatus(" Published ")
	require.NoError(t, err)
	assert.Equal(t, PostStatusPublished, status)

	_, err = ParsePostStatus("archived")
	assert.Error(t, err)
}

func TestSplitKeywords(t *testing.T) {
	assert.Equal(t, []string{"kundli", "astrology", "राशिफल"}, SplitKeywords("kundli, astrology,, kundli , राशिफल"))
	assert.Empty(t, SplitKeywords(" , "))
}

func TestSiteSettingsMerge(t *testing.T) {
	fallback := SiteSettings{Name: "Default", Description: "desc", Keywords: []string{"a"}}
	merged := SiteSettings{Name: "Mine"}.Merge(fallback)
	assert.Equal(t, SiteSettings{Name: "Mine", Description: "desc", Keywords: []string{"a"}}, merged)
}

func TestValidateCredentials(t *testing.T) {
	assert.NoError(t, ValidateCredentials("admin", "secret1"))
	assert.Error(t, ValidateCredentials("ab", "secret1"))
	assert.Error(t, ValidateCredentials("admin", "short"))
	assert.Error(t, ValidateCredentials("admin", strings.Repeat("x", 73)))
}

func TestSessionExpired(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	s := Session{ExpiresAt: now}
	assert.True(t, s.Expired(now))
	assert.False(t, s.Expired(now.Add(-time.Second)))
}
