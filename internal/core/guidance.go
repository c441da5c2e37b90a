package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "validation error"
	}
	if e.Err == nil {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Message returns the localized text for the failing field.
func (e *ValidationError) Message(lang Language) string {
	if e == nil {
		return Message(ErrorKindValidation, lang)
	}
	return FieldMessage(e.Field, lang)
}

var errRequired = errors.New("required")

type guidancePayload struct {
	Name       string   `json:"name"`
	BirthDate  string   `json:"birthDate"`
	BirthTime  string   `json:"birthTime"`
	BirthPlace string   `json:"birthPlace"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	Timezone   *float64 `json:"timezone"`
	Language   *string  `json:"language"`
}

// DecodeGuidanceRequest parses and validates a raw interpretation body.
// Checks run in a fixed order and the first failure is returned.
func DecodeGuidanceRequest(raw []byte) (*GuidanceRequest, *ValidationError) {
	var payload guidancePayload
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &ValidationError{Field: FieldBody, Err: errors.New("empty body")}
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &ValidationError{Field: FieldBody, Err: err}
	}

	req := &GuidanceRequest{
		Name:       strings.TrimSpace(payload.Name),
		BirthDate:  strings.TrimSpace(payload.BirthDate),
		BirthTime:  strings.TrimSpace(payload.BirthTime),
		BirthPlace: strings.TrimSpace(payload.BirthPlace),
		Latitude:   payload.Latitude,
		Longitude:  payload.Longitude,
		Timezone:   DefaultTimezone,
		Language:   DefaultLanguage,
	}

	if req.Name == "" {
		return nil, &ValidationError{Field: FieldName, Err: errRequired}
	}
	if req.BirthDate == "" {
		return nil, &ValidationError{Field: FieldBirthDate, Err: errRequired}
	}
	if req.BirthTime == "" {
		return nil, &ValidationError{Field: FieldBirthTime, Err: errRequired}
	}
	if payload.Language != nil {
		// An explicit empty string is treated like an absent field.
		lang, err := ParseLanguage(*payload.Language)
		if err != nil {
			return nil, &ValidationError{Field: FieldLanguage, Err: err}
		}
		req.Language = lang
	}
	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return nil, &ValidationError{Field: FieldLatitude, Err: fmt.Errorf("out of range: %v", *req.Latitude)}
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return nil, &ValidationError{Field: FieldLongitude, Err: fmt.Errorf("out of range: %v", *req.Longitude)}
	}
	if payload.Timezone != nil {
		req.Timezone = *payload.Timezone
	}

	return req, nil
}

// PeekLanguage extracts the requested language without validating anything
// else, so messages for rejected requests can still be localized. Anything
// unusable yields DefaultLanguage.
func PeekLanguage(raw []byte) Language {
	var probe struct {
		Language string `json:"language"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return DefaultLanguage
	}
	lang, err := ParseLanguage(probe.Language)
	if err != nil {
		return DefaultLanguage
	}
	return lang
}
