package server

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/observability"
)

// HandleError writes the error envelope for err. Nothing is written when the
// client has already gone away.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if r != nil && errors.Is(r.Context().Err(), context.Canceled) {
		if logger := observability.ServerLogger; logger != nil {
			logger.Debug("Client disconnected before error response",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
		}
		return
	}
	apperrors.RespondWithError(w, r, err)
}
