package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/taskchat/internal/api"
	"github.com/user/taskchat/internal/chat"
	"github.com/user/taskchat/internal/config"
	"github.com/user/taskchat/internal/server"
	"github.com/user/taskchat/internal/toolserver"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.OpenAI.APIKey == "" {
		slog.Warn("no OpenAI API key configured, chat completions will fail")
	}
	if cfg.PrintToken {
		fmt.Printf("token: %s\n", cfg.Token)
	}

	orchestrator := chat.New(chat.Options{
		APIKey:     cfg.OpenAI.APIKey,
		Model:      cfg.OpenAI.Model,
		BaseURL:    cfg.OpenAI.BaseURL,
		ToolSource: toolserver.NewClient(cfg.ToolServer.URL, nil),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New("taskchat", cfg.Chat.Port, api.NewRouter(orchestrator))
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
