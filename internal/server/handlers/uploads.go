package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"

	apperrors "github.com/kundliinsight/kundli/internal/errors"
	"github.com/kundliinsight/kundli/internal/media"
)

// uploadsPrefix is the public path uploaded images are served under.
const uploadsPrefix = "/uploads/"

// Upload defaults used when configuration is empty.
const (
	DefaultUploadMaxBytes     = 5 << 20
	DefaultUploadMaxDimension = 1600
	multipartOverhead         = 64 << 10
)

type uploadResponse struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// UploadImage handles POST /api/admin/uploads with a multipart "image" field.
// The image is scaled down and re-encoded before it is written, so what is
// served is always a plain JPEG or PNG.
func (a *API) UploadImage(w http.ResponseWriter, r *http.Request) {
	if a.Uploads.Dir == "" {
		respondWithError(w, r, apperrors.NewUnavailableError("uploads are not configured"))
		return
	}
	maxBytes := a.Uploads.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultUploadMaxBytes
	}
	maxDim := a.Uploads.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultUploadMaxDimension
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+multipartOverhead)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondWithError(w, r, apperrors.NewPayloadTooLargeError("image is too large"))
			return
		}
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "expected a multipart form"))
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("image")
	if err != nil {
		respondWithError(w, r, apperrors.NewValidationError("image file is required"))
		return
	}
	defer file.Close() // nolint:errcheck
	if header.Size > maxBytes {
		respondWithError(w, r, apperrors.NewPayloadTooLargeError("image is too large"))
		return
	}

	result, err := media.Process(file, media.Options{MaxDimension: maxDim})
	if err != nil {
		switch {
		case errors.Is(err, media.ErrTooLarge):
			respondWithError(w, r, apperrors.NewPayloadTooLargeError("image dimensions are too large"))
		case errors.Is(err, media.ErrUnsupportedFormat), errors.Is(err, media.ErrInvalidDimensions):
			respondWithError(w, r, apperrors.NewUnsupportedMediaError("only JPEG, PNG and WebP images are accepted"))
		default:
			respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "unable to process image"))
		}
		return
	}

	name := uuid.NewString() + result.Ext()
	if err := os.MkdirAll(a.Uploads.Dir, 0o755); err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "unable to store image"))
		return
	}
	if err := os.WriteFile(filepath.Join(a.Uploads.Dir, name), result.Data, 0o644); err != nil {
		respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "unable to store image"))
		return
	}

	if l := a.logger(); l != nil {
		l.Info("Image uploaded",
			zap.String("file", name),
			zap.Int("width", result.Width),
			zap.Int("height", result.Height),
			zap.Int("bytes", len(result.Data)),
		)
	}
	writeJSON(w, http.StatusCreated, uploadResponse{
		URL:    uploadsPrefix + name,
		Width:  result.Width,
		Height: result.Height,
	})
}

// UploadsHandler serves stored images under /uploads/. Directory listings
// are not served.
func UploadsHandler(dir string) http.Handler {
	files := http.StripPrefix(uploadsPrefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == uploadsPrefix || r.URL.Path[len(r.URL.Path)-1] == '/' {
			respondWithError(w, r, apperrors.NewNotFoundError("The requested resource was not found"))
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		files.ServeHTTP(w, r)
	})
}
