package core

import (
	"fmt"
	"strings"
	"time"
)

// Language identifies the language a guidance reading is written in.
type Language string

const (
	LanguageHindi   Language = "hi"
	LanguageEnglish Language = "en"
	LanguageMarathi Language = "mr"
)

// DefaultLanguage is used when a request does not name one.
const DefaultLanguage = LanguageHindi

// DefaultTimezone is the UTC offset assumed when a request omits one (IST).
const DefaultTimezone = 5.5

// Languages lists the supported languages in display order.
func Languages() []Language {
	return []Language{LanguageHindi, LanguageEnglish, LanguageMarathi}
}

// ParseLanguage maps a language code onto the closed set of supported
// languages. An empty code resolves to DefaultLanguage.
func ParseLanguage(code string) (Language, error) {
	normalized := strings.ToLower(strings.TrimSpace(code))
	switch Language(normalized) {
	case "":
		return DefaultLanguage, nil
	case LanguageHindi, LanguageEnglish, LanguageMarathi:
		return Language(normalized), nil
	default:
		return "", fmt.Errorf("unsupported language %q", code)
	}
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	switch l {
	case LanguageHindi, LanguageEnglish, LanguageMarathi:
		return true
	default:
		return false
	}
}

// DisplayName returns the native name of the language.
func (l Language) DisplayName() string {
	switch l {
	case LanguageEnglish:
		return "English"
	case LanguageMarathi:
		return "मराठी"
	default:
		return "हिंदी"
	}
}

// GuidanceRequest holds the validated birth details for a reading.
type GuidanceRequest struct {
	Name       string   `json:"name"`
	BirthDate  string   `json:"birthDate"`
	BirthTime  string   `json:"birthTime"`
	BirthPlace string   `json:"birthPlace,omitempty"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
	Timezone   float64  `json:"timezone"`
	Language   Language `json:"language"`
}

// ErrorKind classifies a failed guidance request.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindRateLimitExceeded ErrorKind = "rate_limit_exceeded"
	ErrorKindValidation        ErrorKind = "validation_error"
	ErrorKindConfiguration     ErrorKind = "configuration_error"
	ErrorKindGenerationFailure ErrorKind = "generation_failure"
	ErrorKindUnexpected        ErrorKind = "unexpected_error"
)

// GuidanceResult is the outcome of one interpretation request. Exactly one
// of HTML (OK) or ErrorKind/ErrorMessage (not OK) is meaningful.
type GuidanceResult struct {
	OK           bool      `json:"ok"`
	HTML         string    `json:"resultHtml,omitempty"`
	ErrorKind    ErrorKind `json:"-"`
	ErrorMessage string    `json:"error,omitempty"`
	Language     Language  `json:"-"`
	// RetryAt is set for rate limited results.
	RetryAt time.Time `json:"-"`
}

// Success builds an OK result.
func Success(html string, lang Language) *GuidanceResult {
	return &GuidanceResult{OK: true, HTML: html, Language: lang}
}

// Failure builds a failed result with a localized message.
func Failure(kind ErrorKind, lang Language) *GuidanceResult {
	return &GuidanceResult{
		OK:           false,
		ErrorKind:    kind,
		ErrorMessage: Message(kind, lang),
		Language:     lang,
	}
}
