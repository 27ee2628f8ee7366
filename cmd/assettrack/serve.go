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

	"github.com/spf13/cobra"

	"github.com/erazemk/assettrack/internal/api"
	"github.com/erazemk/assettrack/internal/attach"
	"github.com/erazemk/assettrack/internal/config"
	"github.com/erazemk/assettrack/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringP("addr", "a", "", "listen address (default :8080)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

func (a *app) documentStore(ctx context.Context) (attach.Store, error) {
	switch a.cfg.Storage.Backend {
	case config.StorageMinIO:
		return attach.NewMinIOStore(ctx, attach.MinIOConfig{
			Endpoint:  a.cfg.MinIO.Endpoint,
			AccessKey: a.cfg.MinIO.AccessKey,
			SecretKey: a.cfg.MinIO.SecretKey,
			Bucket:    a.cfg.MinIO.Bucket,
			UseSSL:    a.cfg.MinIO.UseSSL,
		})
	default:
		return attach.NewFSStore(a.cfg.Storage.Dir)
	}
}

func (a *app) serve(ctx context.Context) error {
	database, err := a.openDB()
	if err != nil {
		return err
	}
	defer database.Close()
	slog.Info("database ready", "path", a.cfg.Database.Path)

	documents, err := a.documentStore(ctx)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}
	slog.Info("document store ready", "backend", a.cfg.Storage.Backend)

	var m *metrics.Metrics
	if a.cfg.Metrics.Enabled {
		m = metrics.New()
	}

	router := api.NewRouter(database, api.Options{
		Documents:   documents,
		Metrics:     m,
		PageSize:    a.cfg.Listing.PageSize,
		MaxPageSize: a.cfg.Listing.MaxPageSize,
	})

	server := &http.Server{
		Addr:              a.cfg.Server.Addr,
		Handler:           api.Wrap(router, m),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       a.cfg.Server.ReadTimeout,
		WriteTimeout:      a.cfg.Server.WriteTimeout,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	done := make(chan struct{})
	go func() {
		defer close(done)
		select {
		case sig := <-quit:
			slog.Info("shutdown signal received", "signal", sig.String())
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", a.cfg.Server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	<-done

	slog.Info("server stopped, closing database")
	return nil
}
