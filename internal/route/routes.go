package route

import (
	"net/http"

	"antpi/internal/config"
	"antpi/internal/handler"
	"antpi/internal/logger"
	"antpi/internal/middleware"
	"antpi/internal/service"
)

// SetupRoutes registers HTTP routes, static file serving and API endpoints,
// and wraps the mux with the request logging middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files, including the uploaded images and labels the labeler reads
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDirectory))))

	// Ingest
	mux.HandleFunc("/receive", handler.ReceiveImageHandler(manager, cfg, logger))

	// Catalog
	mux.HandleFunc("/get-images", handler.GetImagesHandler(manager, logger))
	mux.HandleFunc("/uploaded_images", handler.GetImagesHandler(manager, logger))
	mux.HandleFunc("/image", handler.ViewImageHandler(manager))
	mux.HandleFunc("/thumbnail", handler.ThumbnailHandler(manager, cfg, logger))
	mux.HandleFunc("/delete-image", handler.DeleteImageHandler(manager, logger))
	mux.HandleFunc("/ws", handler.ViewWebsocketHandler(manager, logger))

	// Annotation
	mux.HandleFunc("/label", handler.LabelPageHandler(cfg))
	mux.HandleFunc("/get_labels", handler.GetLabelsHandler(manager, logger))
	mux.HandleFunc("/save_labels", handler.SaveLabelsHandler(manager, logger))

	// Export
	mux.HandleFunc("/download-dataset", handler.DownloadDatasetHandler(manager, logger))
	mux.HandleFunc("/download-dataset-range", handler.DownloadDatasetRangeHandler(manager, logger))

	// Log endpoints
	mux.HandleFunc("/logs", handler.ShowLogsHandler(cfg))
	mux.HandleFunc("/logs/clear", handler.ClearLogsHandler(logger))

	// Automatic HTML handler mapping for example: /gallery -> /static/gallery.html
	mux.HandleFunc("/", handler.DynamicHTMLHandler(cfg))

	return middleware.LoggingMiddleware(logger, mux)
}
