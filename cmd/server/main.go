package main

import (
	"antpi/internal/app"
	"antpi/internal/config"
	"antpi/internal/logger"
)

func main() {
	cfg := config.Load()
	log := logger.NewLogger(cfg)
	defer log.Close()

	application, err := app.NewApp(cfg, log)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	defer application.Close()

	if err := application.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
