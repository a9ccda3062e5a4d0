package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"lifeos/internal/server"
	"lifeos/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and serve the frontend",
	RunE:  runServe,
}

func init() {
	addServeFlags(serveCmd)
}

// addServeFlags registers the flags that override server settings. Only
// flags given on the command line take precedence over config and env.
func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("static-dir", "web/dist", "Directory with the built frontend")
	cmd.Flags().String("backend", "file", "Storage backend: file, sqlite or mongo")
	cmd.Flags().String("data-dir", "data", "Directory for data files")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.Info("lifeos starting",
		slog.String("version", cmd.Root().Version),
		slog.String("backend", cfg.Backend))

	ctx := cmd.Context()
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("unable to open storage", slog.String("error", err.Error()))
		return err
	}
	defer store.Close()

	spaces := workspace.NewRegistry(store, workspaceOptions(cfg, logger))
	srv := server.New(spaces, logger, server.Options{
		StaticDir:    cfg.StaticDir,
		OwnerHeader:  cfg.OwnerHeader,
		DefaultOwner: cfg.DefaultOwner,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	// Pending note drafts are written before the store closes.
	if err := spaces.Close(shutdownCtx); err != nil {
		logger.Error("failed to save drafts", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
	return nil
}
