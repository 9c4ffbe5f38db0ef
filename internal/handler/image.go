package handler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pairwish/internal/images"
)

// maxUploadBody leaves room for the multipart envelope around the file.
const maxUploadBody = images.MaxSize + 1<<20

// ImageUploader stores an uploaded picture and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, r io.Reader) (string, error)
}

type ImageHandler struct {
	uploader ImageUploader
	logger   *slog.Logger
}

func NewImageHandler(u ImageUploader, logger *slog.Logger) *ImageHandler {
	return &ImageHandler{uploader: u, logger: logger}
}

// Upload handles POST /api/images with a multipart "file" field.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > maxUploadBody {
		writeMessage(w, http.StatusRequestEntityTooLarge, images.ErrTooLarge.Error())
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBody)

	file, _, err := r.FormFile("file")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeMessage(w, http.StatusRequestEntityTooLarge, images.ErrTooLarge.Error())
			return
		}
		writeMessage(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	url, err := h.uploader.Upload(r.Context(), file)
	switch {
	case errors.Is(err, images.ErrTooLarge):
		writeMessage(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, images.ErrUnsupportedType):
		writeMessage(w, http.StatusUnsupportedMediaType, "image must be jpeg, png, gif or webp")
	case errors.Is(err, images.ErrEmpty):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case err != nil:
		writeError(w, h.logger, err)
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"url": url})
	}
}
