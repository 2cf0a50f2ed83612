package handler

import (
	"errors"
	"io"
	"net/http"

	"antpi/internal/config"
	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/middleware"
	"antpi/internal/service"
	"antpi/internal/service/storage"
)

// ReceiveImageHandler accepts a multipart upload in the "image" field from
// the capture clients.
func ReceiveImageHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadMB<<20)
		if err := r.ParseMultipartForm(cfg.MaxUploadMB << 20); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				writeJSON(w, logger, http.StatusRequestEntityTooLarge, dto.ErrorResponse{Error: "File too large"})
				return
			}
			writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse{Error: "No image part"})
			return
		}

		file, header, err := r.FormFile("image")
		if err != nil {
			writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse{Error: "No image part"})
			return
		}
		defer file.Close()

		if header.Filename == "" {
			writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse{Error: "No selected file"})
			return
		}
		if !storage.IsImageName(header.Filename) {
			writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid file type"})
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			logger.Error("[%s] Error reading upload %s: %v", middleware.RequestID(r.Context()), header.Filename, err)
			writeJSON(w, logger, http.StatusInternalServerError, dto.ErrorResponse{Error: "Unable to read upload"})
			return
		}

		name, metadata, err := manager.ReceiveImage(header.Filename, data)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("[%s] Error storing upload %s: %v", middleware.RequestID(r.Context()), header.Filename, err)
				writeJSON(w, logger, status, dto.ErrorResponse{Error: "Unable to save image"})
				return
			}
			writeJSON(w, logger, status, dto.ErrorResponse{Error: err.Error()})
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.ReceiveResponse{
			Message:  "Image received",
			Filename: name,
			Metadata: metadata,
		})
	}
}
