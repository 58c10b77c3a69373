package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"microsocial/cmd/app"
	"microsocial/internal/config"
	"microsocial/internal/logger"
)

func main() {
	cfg := config.LoadConfig()

	zl, err := logger.New(cfg.IsDevelopment())
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	if err := cfg.Validate(); err != nil {
		zl.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		zl.Fatal("failed to start application", zap.Error(err))
	}
	defer a.Close()

	zl.Info("database ready", zap.String("dbname", cfg.DB.DbNAME))

	if err := a.Server.Start(ctx); err != nil {
		zl.Error("server stopped with error", zap.Error(err))
	}
}
