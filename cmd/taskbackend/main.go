package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/taskchat/internal/backend"
	"github.com/user/taskchat/internal/config"
	"github.com/user/taskchat/internal/db"
	"github.com/user/taskchat/internal/hub"
	"github.com/user/taskchat/internal/server"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.Backend.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	eventHub := hub.New(cfg.Token)
	go eventHub.Run(ctx)

	router := backend.NewRouter(db.NewTaskRepo(database.SQL()), eventHub)
	srv := server.New("taskbackend", cfg.Backend.Port, router)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
