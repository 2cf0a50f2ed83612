package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"antpi/internal/logger"
	"antpi/internal/middleware"
	"antpi/internal/service"
	"antpi/internal/service/export"
)

// DownloadDatasetHandler sends every image, label file and record as a zip.
func DownloadDatasetHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := manager.ExportAll()
		if err != nil {
			logger.Error("[%s] Error building dataset archive: %v", middleware.RequestID(r.Context()), err)
			writeError(w, logger, http.StatusInternalServerError, "Unable to build dataset archive")
			return
		}
		sendZip(w, export.ArchiveName, data)
	}
}

// DownloadDatasetRangeHandler sends the images captured between the "from"
// and "to" dates (inclusive, YYYY-MM-DD) with their label files.
func DownloadDatasetRangeHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		from, to := q.Get("from"), q.Get("to")
		if from == "" || to == "" {
			writeError(w, logger, http.StatusBadRequest, "from and to are required")
			return
		}

		dates, err := export.ParseDateRange(from, to)
		if err != nil {
			writeError(w, logger, http.StatusBadRequest, err.Error())
			return
		}

		data, err := manager.ExportRange(dates)
		if err != nil {
			logger.Error("[%s] Error building dataset archive for %s to %s: %v", middleware.RequestID(r.Context()), from, to, err)
			writeError(w, logger, http.StatusInternalServerError, "Unable to build dataset archive")
			return
		}
		sendZip(w, dates.ArchiveName(), data)
	}
}

func sendZip(w http.ResponseWriter, name string, data []byte) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}
