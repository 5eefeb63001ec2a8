package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"todoapp/internal/config"
	"todoapp/internal/console"
	"todoapp/internal/storage/graph"
	"todoapp/internal/storage/memory"
	"todoapp/internal/todo"
)

func main() {
	cfg, err := config.LoadConsole(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	// stdout belongs to the menu
	level := slog.LevelWarn
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := context.Background()

	var store todo.Storage
	switch cfg.Storage {
	case config.StorageNeo4j:
		connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
		graphStore, err := graph.Open(connectCtx, graph.Config{
			URI:      cfg.Neo4j.URI,
			Username: cfg.Neo4j.Username,
			Password: cfg.Neo4j.Password,
		}, logger)
		cancel()
		if err != nil {
			logger.Error("unable to open neo4j store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer graphStore.Close(context.Background())
		store = graphStore

		// the menu blocks on stdin, so an interrupt has to close the driver itself
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			<-quit
			_ = graphStore.Close(context.Background())
			fmt.Println("\n\nApplication interrupted. Goodbye!")
			os.Exit(130)
		}()
	default:
		store = memory.NewStore()
	}

	fmt.Println("=== Todo App - Phase I ===")
	fmt.Println()

	ui := console.New(todo.NewManager(store), os.Stdin, os.Stdout)
	if err := ui.Run(ctx); err != nil {
		logger.Error("console stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
