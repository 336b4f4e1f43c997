package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the widget service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides WIDGETD_ADDR)")

	return cmd
}

func runServe(cfg Config) error {
	logger := newLogger(cfg.LogLevel)

	store := newWidgetStore()
	seed(store)

	svc, err := newService(cfg, newServer(store, logger))
	if err != nil {
		return fmt.Errorf("assemble service: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting server",
		"addr", cfg.Addr,
		"spec", fmt.Sprintf("http://localhost%s/openapi.json", cfg.Addr),
		"docs", fmt.Sprintf("http://localhost%s/docs", cfg.Addr),
	)

	if err := svc.ListenAndServe(ctx, cfg.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	logger.Info("server stopped")
	return nil
}
