package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/taskchat/internal/config"
	"github.com/user/taskchat/internal/server"
	"github.com/user/taskchat/internal/taskstore"
	"github.com/user/taskchat/internal/tools"
	"github.com/user/taskchat/internal/toolserver"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	registry := tools.NewRegistry()
	executor := tools.NewExecutor(registry, taskstore.NewClient(cfg.Backend.URL, nil))
	slog.Info("tool server configured", "tools", registry.Len(), "backend", cfg.Backend.URL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New("toolserver", cfg.ToolServer.Port, toolserver.NewRouter(registry, executor))
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
