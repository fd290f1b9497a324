package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"itemcam/internal/app"
	"itemcam/internal/config"
	"itemcam/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	application, err := app.NewApp(ctx, cfg, logger.NewLogger(cfg))
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
