package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/gcbaptista/go-geocode-keys/api"
	"github.com/gcbaptista/go-geocode-keys/internal/jobs"
)

const shutdownTimeout = 10 * time.Second

var (
	servePort    string
	serveDataDir string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the key inspection server",
	Long: `Start the HTTP inspection server.

The index in the data directory is restored on start when present and
persisted again on shutdown.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to run the server on (overrides [server].port)")
	serveCmd.Flags().StringVarP(&serveDataDir, "data-dir", "d", "", "Index data directory (overrides [index].data_dir)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if servePort != "" {
		cfg.Server.Port = servePort
	}
	if serveDataDir != "" {
		cfg.Index.DataDir = serveDataDir
	}

	l := newLogger(cfg, "serve")
	svc, err := newService(cfg, newLogger(cfg, "index"))
	if err != nil {
		return err
	}

	l.Info("Using data directory", "dir", cfg.Index.DataDir)
	if err := svc.Restore(cfg.Index.DataDir); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		l.Info("No persisted index found, starting empty", "id", cfg.Index.ID)
	}

	jobManager := jobs.NewManager(cfg.Server.JobWorkers, newLogger(cfg, "jobs"))
	jobManager.Start()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), api.RequestIDMiddleware(), api.CORSMiddleware(),
		api.RequestSizeLimitMiddleware(cfg.Server.MaxBodyBytes))
	api.SetupRoutes(router, svc, jobManager, cfg.Index.DataDir)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		l.Info("Starting server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		l.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Error("Server shutdown failed", "err", err)
	}
	// running jobs are cancelled between batches; whatever they indexed is persisted
	jobManager.Stop()
	return svc.Persist(cfg.Index.DataDir)
}
