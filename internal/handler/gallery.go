package handler

import (
	"net/http"
	"strconv"
	"strings"

	"antpi/internal/config"
	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/middleware"
	"antpi/internal/service"
	"antpi/internal/service/storage"
)

// FilterSemanticsHeader tells clients that only_labeled keeps the images
// WITHOUT labels.
const (
	FilterSemanticsHeader = "X-Filter-Semantics"
	FilterSemanticsValue  = "only_labeled=unlabeled-only"
)

// GetImagesHandler returns the gallery listing, newest first.
//
// Query parameters:
//   - filter: case-insensitive filename substring
//   - only_labeled: when truthy, keeps only images that are NOT labeled
func GetImagesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filters := dto.ImageFilters{
			Query:         strings.TrimSpace(q.Get("filter")),
			UnlabeledOnly: config.IsTruthy(q.Get("only_labeled")),
		}

		entries, err := manager.ListImages(filters)
		if err != nil {
			logger.Error("[%s] Error listing images: %v", middleware.RequestID(r.Context()), err)
			writeError(w, logger, http.StatusInternalServerError, "Unable to list images")
			return
		}

		images := make([]dto.ImageInfo, 0, len(entries))
		for _, e := range entries {
			images = append(images, dto.NewImageInfo(e))
		}

		w.Header().Set(FilterSemanticsHeader, FilterSemanticsValue)
		writeJSON(w, logger, http.StatusOK, images)
	}
}

// ViewImageHandler serves a stored image named by the "name" query parameter.
func ViewImageHandler(manager *service.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if name == "" {
			http.Error(w, "Name parameter is required", http.StatusBadRequest)
			return
		}
		if err := storage.ValidateName(name); err != nil {
			http.Error(w, "Invalid filename", http.StatusBadRequest)
			return
		}
		store := manager.GetStore()
		if !store.HasImage(name) {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, store.ImagePath(name))
	}
}

// ThumbnailHandler serves a JPEG thumbnail of the "image" query parameter,
// sized by "size" or the configured default.
func ThumbnailHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		image := q.Get("image")
		if image == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		size := atoiDefault(q.Get("size"), cfg.ThumbnailSize)
		if size > maxThumbnailSize {
			size = maxThumbnailSize
		}

		thumb, err := manager.Thumbnail(image, size)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("[%s] Error rendering thumbnail for %s: %v", middleware.RequestID(r.Context()), image, err)
			}
			http.Error(w, http.StatusText(status), status)
			return
		}

		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "max-age=300")
		w.Write(thumb)
	}
}

const maxThumbnailSize = 2048

// DeleteImageHandler removes an image with its label file and record.
func DeleteImageHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.DeleteRequest
		if err := decodeJSON(r, &req); err != nil || req.Filename == "" {
			writeError(w, logger, http.StatusBadRequest, "filename missing")
			return
		}

		removed, err := manager.DeleteImage(req.Filename)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("[%s] Failed to delete %s: %v", middleware.RequestID(r.Context()), req.Filename, err)
			}
			writeJSON(w, logger, status, dto.DeleteResponse{
				Status:  dto.DeleteError,
				Removed: removed,
				Message: err.Error(),
			})
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.DeleteResponse{Status: removed.Status(), Removed: removed})
	}
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}
