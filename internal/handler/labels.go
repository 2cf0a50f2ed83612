package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"antpi/internal/config"
	"antpi/internal/dto"
	"antpi/internal/logger"
	"antpi/internal/middleware"
	"antpi/internal/service"
)

// LabelerPage is the labeling UI served by GET /label.
const LabelerPage = "labeler.html"

// LabelPageHandler serves the labeling UI for the image in the "image"
// query parameter. The page reads the parameter itself.
func LabelPageHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("image") == "" {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		serveStaticPage(w, r, filepath.Join(cfg.StaticDirectory, LabelerPage))
	}
}

// GetLabelsHandler returns the reconciled labels for one image.
func GetLabelsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" {
			writeError(w, logger, http.StatusBadRequest, "image missing")
			return
		}

		labels, err := manager.GetLabels(image)
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("[%s] Error reading labels for %s: %v", middleware.RequestID(r.Context()), image, err)
			}
			writeError(w, logger, status, err.Error())
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.LabelsResponse{Status: "success", Image: image, Labels: labels})
	}
}

// SaveLabelsHandler replaces the labels of one image. Malformed entries are
// dropped rather than failing the request.
func SaveLabelsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethod(w, r, http.MethodPost) {
			return
		}

		var req dto.SaveLabelsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, logger, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.Image == "" {
			writeError(w, logger, http.StatusBadRequest, "image missing")
			return
		}

		result, err := manager.SaveLabels(req.Image, req.Entries())
		if err != nil {
			status := errorStatus(err)
			if status == http.StatusInternalServerError {
				logger.Error("[%s] Error saving labels for %s: %v", middleware.RequestID(r.Context()), req.Image, err)
			}
			writeError(w, logger, status, err.Error())
			return
		}

		writeJSON(w, logger, http.StatusOK, dto.SaveLabelsResponse{
			Status:  "success",
			Message: fmt.Sprintf("Saved %d of %d boxes (%d true positives)", result.Saved, result.Total, result.Kept),
			Total:   result.Total,
			Saved:   result.Saved,
			Kept:    result.Kept,
		})
	}
}

const maxJSONBody = 1 << 20

// decodeJSON decodes a request body of at most maxJSONBody bytes into v.
func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxJSONBody)).Decode(v)
}
