package handlers

import (
	"net/http"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
)

// errorResponder writes error envelopes for every handler in this package.
// The server swaps in its logging and metrics aware version at startup.
var errorResponder = apperrors.RespondWithError

// SetHTTPErrorResponder installs fn as the error writer; nil restores the
// plain envelope writer.
func SetHTTPErrorResponder(fn func(http.ResponseWriter, *http.Request, error)) {
	if fn == nil {
		fn = apperrors.RespondWithError
	}
	errorResponder = fn
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	errorResponder(w, r, err)
}
