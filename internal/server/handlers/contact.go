package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kundliinsight/kundli/internal/core"
	"github.com/kundliinsight/kundli/internal/metrics"
	"github.com/kundliinsight/kundli/internal/sanitize"
)

// Contact form limits.
const (
	maxContactName    = 200
	maxContactMessage = 5000
)

type contactRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Message  string `json:"message"`
	Language string `json:"language"`
}

type contactResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Contact handles POST /api/contact.
func (a *API) Contact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	body, err := a.readBody(w, r)
	if err == nil {
		err = json.Unmarshal(body, &req)
	}
	lang := core.PeekLanguage(body)
	if err == nil {
		err = validateContact(&req)
	}
	if err != nil {
		metrics.RecordContactMessage(false)
		if l := a.logger(); l != nil {
			l.Info("Contact message rejected", zap.Error(err))
		}
		writeJSON(w, http.StatusBadRequest, contactResponse{Error: core.ContactFailureMessage(lang)})
		return
	}

	msg := core.ContactMessage{
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	stored, err := a.Store.CreateContactMessage(r.Context(), msg)
	if err != nil {
		metrics.RecordContactMessage(false)
		if l := a.logger(); l != nil {
			l.Error("Failed to store contact message", zap.Error(err))
		}
		writeJSON(w, http.StatusInternalServerError, contactResponse{Error: core.ContactFailureMessage(lang)})
		return
	}

	metrics.RecordContactMessage(true)
	if l := a.logger(); l != nil {
		l.Info("Contact message stored", zap.String("id", stored.ID))
	}
	writeJSON(w, http.StatusOK, contactResponse{OK: true, Message: core.ContactSuccessMessage(lang)})
}

func validateContact(req *contactRequest) error {
	req.Name = sanitize.PlainText(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Message = sanitize.PlainText(req.Message)

	switch {
	case req.Name == "" || utf8.RuneCountInString(req.Name) > maxContactName:
		return errContactField("name")
	case req.Message == "" || utf8.RuneCountInString(req.Message) > maxContactMessage:
		return errContactField("message")
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil || addr.Address != req.Email {
		return errContactField("email")
	}
	return nil
}

type errContactField string

func (e errContactField) Error() string {
	return "invalid contact " + string(e)
}
