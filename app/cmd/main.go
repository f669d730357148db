package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"docqa/app/server"
	"docqa/config"
	"docqa/pipeline"
	"docqa/watch"
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	ctx := context.Background()
	p, vs, err := pipeline.Build(ctx, cfg)
	if err != nil {
		log.Fatal("failed to build pipeline: ", err)
	}

	s := server.New(cfg, p, vs)
	go func() {
		if err := s.Run(); err != nil {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	var w *watch.Watcher
	if cfg.WatchEnabled {
		w = watch.New(cfg.DocumentsPath, cfg.WatchInterval, cfg.WatchSettle, p)
		w.Start(ctx)
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)
	<-sigch
	slog.Info("received shutdown signal, shutting down")

	if w != nil {
		w.Stop()
	}
	s.Stop()
	vs.Close()
}
