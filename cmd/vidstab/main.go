package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"vidstab/internal/cli"
	"vidstab/internal/config"
	"vidstab/internal/logging"
	"vidstab/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vidstab: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.Setup(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "vidstab: %v\n", err)
		os.Exit(1)
	}

	store, err := storage.New(cfg.Paths.DatabasePath)
	if err != nil {
		logger.Warn("run history disabled", "path", cfg.Paths.DatabasePath, "error", err)
		store = nil
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(cfg, logger, store)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Error("vidstab failed", "error", err)
		os.Exit(1)
	}
}
