package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoapp/internal/agent"
	"todoapp/internal/auth"
	"todoapp/internal/chat"
	"todoapp/internal/config"
	"todoapp/internal/llm"
	"todoapp/internal/server"
	"todoapp/internal/storage/sqlite"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger.Info("todo server starting", slog.String("llm_provider", cfg.LLM.Provider), slog.String("llm_model", cfg.LLM.Model))

	store, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		logger.Error("unable to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer store.Close()

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("invalid token settings", slog.String("error", err.Error()))
		os.Exit(1)
	}

	completer, err := newCompleter(context.Background(), cfg.LLM)
	if err != nil {
		logger.Error("unable to create llm client", slog.String("error", err.Error()))
		os.Exit(1)
	}

	chatService := chat.NewService(store, agent.New(completer, logger), logger)
	srv := server.New(store, tokens, chatService, logger, server.Options{
		StaticDir:   cfg.StaticDir,
		CORSOrigins: cfg.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", slog.String("error", err.Error()))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}

func newCompleter(ctx context.Context, cfg config.LLM) (llm.Completer, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		return llm.NewGemini(ctx, llm.GeminiConfig{APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout})
	case config.ProviderMock:
		echo := llm.NewScripted()
		echo.LimitRequests(0)
		return echo, nil
	default:
		return llm.NewOpenAI(llm.OpenAIConfig{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey, Model: cfg.Model, Timeout: cfg.Timeout})
	}
}
