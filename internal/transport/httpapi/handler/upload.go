package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/kislikjeka/memechain/internal/platform/media"
	"github.com/kislikjeka/memechain/pkg/logger"
)

var (
	errUnsupportedType = errors.New("Unsupported file type. Use JPG, PNG, GIF, or WebP.")
	errTooLarge        = errors.New("File exceeds 10MB limit.")
	errPinFailed       = errors.New("Failed to upload file to IPFS. Please try again.")
)

// MediaStore validates and pins uploads
type MediaStore interface {
	Store(ctx context.Context, f media.File) (*media.Stored, error)
}

// UploadHandler pins media without submitting it anywhere
type UploadHandler struct {
	store  MediaStore
	logger *logger.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(store MediaStore, log *logger.Logger) *UploadHandler {
	return &UploadHandler{
		store:  store,
		logger: log.WithField("handler", "upload"),
	}
}

// Upload handles POST /api/ipfs-upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	file, status, err := readUpload(w, r)
	if err != nil {
		respondError(w, err.Error(), status)
		return
	}

	stored, err := h.store.Store(r.Context(), file)
	if err != nil {
		if ve, ok := media.AsValidationError(err); ok {
			if ve.Reason == media.ReasonTooLarge {
				respondError(w, errTooLarge.Error(), http.StatusRequestEntityTooLarge)
				return
			}
			respondError(w, errUnsupportedType.Error(), http.StatusUnsupportedMediaType)
			return
		}
		if errors.Is(err, media.ErrEmptyFile) {
			respondError(w, errFileRequired.Error(), http.StatusBadRequest)
			return
		}

		h.logger.WithContext(r.Context()).Error("upload failed", "name", file.DisplayName(), "size", file.Size(), "error", err)
		respondError(w, errPinFailed.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, stored, http.StatusOK)
}
