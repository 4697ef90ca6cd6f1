package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tigdiff/internal/api"
	"tigdiff/internal/config"
	"tigdiff/internal/repo"

	"go.uber.org/zap"
)

func main() {
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal("failed to get working directory:", err)
	}

	root, err := repo.FindRoot(cwd)
	if err != nil {
		log.Fatal("failed to find repository:", err)
	}

	// Load configuration
	cfg, err := config.Load(os.Getenv("TIG_CONFIG"), root, nil)
	if err != nil {
		log.Fatal("failed to load config:", err)
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	r, err := repo.Open(root, logger.Logger)
	if err != nil {
		logger.Fatal("failed to open repository", zap.Error(err))
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := r.Watch(ctx); err != nil {
		logger.Warn("file watching disabled", zap.Error(err))
	}

	handler := api.NewServer(r, cfg.DiffOptions(), logger)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	if err := api.ListenAndServe(ctx, addr, handler, logger); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
