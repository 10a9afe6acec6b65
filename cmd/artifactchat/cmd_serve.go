package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/artifactchat/internal/httpapi"
	"github.com/user/artifactchat/internal/telegram"
)

const shutdownTimeout = 5 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "listen address; enables the HTTP API regardless of http.enabled")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API and the Telegram bot",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	a, err := buildApp(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.chat.Start(ctx)
	defer a.chat.Stop()

	// Telegram adapter
	telegramOn := cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0
	if telegramOn {
		adapter, err := telegram.New(cfg.Telegram.Token, cfg.Telegram.ChatID, a.chat, a.registry.Catalog())
		if err != nil {
			return fmt.Errorf("create telegram adapter: %w", err)
		}
		go adapter.Start(ctx)
		slog.Info("telegram adapter started", "chat_id", cfg.Telegram.ChatID)
	} else {
		slog.Warn("telegram adapter disabled (no token or chat id)")
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen == "" && cfg.HTTP.Enabled {
		listen = cfg.HTTP.Listen
	}
	if listen == "" {
		if telegramOn {
			<-ctx.Done()
			slog.Info("shutting down")
			return nil
		}
		return fmt.Errorf("nothing to serve: set http.enabled, pass --listen or configure telegram")
	}

	srv := &http.Server{
		Addr: listen,
		Handler: httpapi.NewServer(a.chat, httpapi.Options{
			Tools:    a.registry.Catalog(),
			Settings: cfg.Settings,
			Metrics:  a.metrics.Handler(),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server started", "listen", listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown", "error", err)
	}
	return nil
}
