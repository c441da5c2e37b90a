package core

import (
	"fmt"
	"time"
)

// Messages shown to site visitors. Hindi is the site's primary language and
// the fallback for anything missing in the other tables.

// defaultRetryMinutes is quoted when the limiter window is not known.
const defaultRetryMinutes = 10

var rateLimitMessages = map[Language]string{
	LanguageHindi:   "बहुत अधिक अनुरोध। कृपया %d मिनट बाद पुनः प्रयास करें।",
	LanguageEnglish: "Too many requests. Please try again after %d minutes.",
	LanguageMarathi: "खूप जास्त विनंत्या. कृपया %d मिनिटांनी पुन्हा प्रयत्न करा.",
}

var failureMessages = map[ErrorKind]map[Language]string{
	ErrorKindValidation: {
		LanguageHindi:   "कृपया सभी आवश्यक जानकारी सही भरें।",
		LanguageEnglish: "Please fill in all required details correctly.",
		LanguageMarathi: "कृपया सर्व आवश्यक माहिती योग्यरित्या भरा.",
	},
	ErrorKindConfiguration: {
		LanguageHindi:   "सेवा अस्थायी रूप से अनुपलब्ध है। कृपया बाद में पुनः प्रयास करें।",
		LanguageEnglish: "The service is temporarily unavailable. Please try again later.",
		LanguageMarathi: "सेवा तात्पुरती उपलब्ध नाही. कृपया नंतर पुन्हा प्रयत्न करा.",
	},
	ErrorKindGenerationFailure: {
		LanguageHindi:   "मार्गदर्शन तैयार नहीं हो सका। कृपया पुनः प्रयास करें।",
		LanguageEnglish: "Could not generate guidance. Please try again.",
		LanguageMarathi: "मार्गदर्शन तयार करता आले नाही. कृपया पुन्हा प्रयत्न करा.",
	},
	ErrorKindUnexpected: {
		LanguageHindi:   "कुछ तकनीकी समस्या हुई है। कृपया पुनः प्रयास करें।",
		LanguageEnglish: "Something went wrong. Please try again.",
		LanguageMarathi: "काही तांत्रिक अडचण आली. कृपया पुन्हा प्रयत्न करा.",
	},
}

// Field names used in validation messages.
const (
	FieldName      = "name"
	FieldBirthDate = "birthDate"
	FieldBirthTime = "birthTime"
	FieldLanguage  = "language"
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
	FieldBody      = "body"
)

var fieldMessages = map[string]map[Language]string{
	FieldName: {
		LanguageHindi:   "नाम आवश्यक है",
		LanguageEnglish: "Name is required",
		LanguageMarathi: "नाव आवश्यक आहे",
	},
	FieldBirthDate: {
		LanguageHindi:   "जन्म तिथि आवश्यक है",
		LanguageEnglish: "Birth date is required",
		LanguageMarathi: "जन्म तारीख आवश्यक आहे",
	},
	FieldBirthTime: {
		LanguageHindi:   "जन्म समय आवश्यक है",
		LanguageEnglish: "Birth time is required",
		LanguageMarathi: "जन्म वेळ आवश्यक आहे",
	},
	FieldLanguage: {
		LanguageHindi:   "भाषा hi, en या mr होनी चाहिए",
		LanguageEnglish: "Language must be one of hi, en or mr",
		LanguageMarathi: "भाषा hi, en किंवा mr असावी",
	},
	FieldLatitude: {
		LanguageHindi:   "अक्षांश -90 और 90 के बीच होना चाहिए",
		LanguageEnglish: "Latitude must be between -90 and 90",
		LanguageMarathi: "अक्षांश -90 ते 90 दरम्यान असावे",
	},
	FieldLongitude: {
		LanguageHindi:   "देशांतर -180 और 180 के बीच होना चाहिए",
		LanguageEnglish: "Longitude must be between -180 and 180",
		LanguageMarathi: "रेखांश -180 ते 180 दरम्यान असावे",
	},
}

// Message returns the visitor-facing text for a failure kind. The rate limit
// text quotes the default window; use RateLimitMessage when it is known.
func Message(kind ErrorKind, lang Language) string {
	if kind == ErrorKindRateLimitExceeded {
		return RateLimitMessage(lang, 0)
	}
	return lookup(failureMessages[kind], lang, failureMessages[ErrorKindUnexpected])
}

// RateLimitMessage asks the visitor to wait out window, quoted in whole
// minutes rounded up. A non-positive window quotes the default ten minutes.
func RateLimitMessage(lang Language, window time.Duration) string {
	minutes := defaultRetryMinutes
	if window > 0 {
		minutes = int((window + time.Minute - 1) / time.Minute)
	}
	return fmt.Sprintf(lookup(rateLimitMessages, lang, nil), minutes)
}

// FieldMessage returns the visitor-facing text for an invalid field. Unknown
// fields fall back to the generic validation message.
func FieldMessage(field string, lang Language) string {
	return lookup(fieldMessages[field], lang, failureMessages[ErrorKindValidation])
}

// ContactSuccessMessage is returned after a contact message is stored.
func ContactSuccessMessage(lang Language) string {
	switch lang {
	case LanguageEnglish:
		return "Your message has been sent successfully."
	case LanguageMarathi:
		return "तुमचा संदेश यशस्वीरित्या पाठवला गेला आहे."
	default:
		return "आपका संदेश सफलतापूर्वक भेजा गया है।"
	}
}

// ContactFailureMessage is returned when a contact message cannot be stored.
func ContactFailureMessage(lang Language) string {
	switch lang {
	case LanguageEnglish:
		return "There was a problem sending your message. Please try again."
	case LanguageMarathi:
		return "संदेश पाठवण्यात अडचण आली. कृपया पुन्हा प्रयत्न करा."
	default:
		return "संदेश भेजने में समस्या हुई। कृपया पुनः प्रयास करें।"
	}
}

func lookup(table map[Language]string, lang Language, fallback map[Language]string) string {
	if table == nil {
		table = fallback
	}
	if msg, ok := table[lang]; ok {
		return msg
	}
	return table[DefaultLanguage]
}
