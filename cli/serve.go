package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docqa/app/server"
	"docqa/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	p, vs, cfg, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer vs.Close()

	s := server.New(cfg, p, vs)
	errc := make(chan error, 1)
	go func() {
		errc <- s.Run()
	}()

	var w *watch.Watcher
	if cfg.WatchEnabled {
		w = watch.New(cfg.DocumentsPath, cfg.WatchInterval, cfg.WatchSettle, p)
		w.Start(ctx)
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case <-sigch:
	}
	slog.Info("received shutdown signal, shutting down")

	if w != nil {
		w.Stop()
	}
	s.Stop()
	return nil
}
