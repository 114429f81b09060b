package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jward/wayfind"
	"github.com/jward/wayfind/internal/watch"
)

// watchDirectory keeps the index for root current until interrupted.
func watchDirectory(ctx context.Context, engine *wayfind.Engine, root string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(nil, func(paths []string) {
		if err := engine.SyncFiles(ctx, paths); err != nil {
			logger.Warn("reindex failed", "files", len(paths), "error", err)
			return
		}
		logger.Info("reindexed", "files", len(paths))
	}, watch.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.Watch(root); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", root, err)
	}
	logger.Info("watching for changes", "root", root)

	<-ctx.Done()
	return w.Close()
}
