package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go-dataset-workflow/internal/api"
	"go-dataset-workflow/internal/api/handler"
	"go-dataset-workflow/internal/backend"
	"go-dataset-workflow/internal/config"
	"go-dataset-workflow/internal/objectstore"
	"go-dataset-workflow/internal/pipeline"
	"go-dataset-workflow/internal/store"
	"go-dataset-workflow/pkg/router"
	"go-dataset-workflow/pkg/utils"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger settings may be what failed
		config.Defaults().NewLogger(os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	log := cfg.NewLogger(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	output := utils.NewOutputManager(cfg.OutputDir)
	if err := output.EnsureOutputDirExists(); err != nil {
		log.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	var bc *backend.Client
	if cfg.BackendURL != "" {
		bc, err = backend.New(backend.Config{
			BaseURL: cfg.BackendURL,
			Timeout: cfg.BackendTimeout,
			Retry:   cfg.BackendRetry,
		})
		if err != nil {
			log.Error("failed to create backend client", "error", err)
			os.Exit(1)
		}
	}

	var sink pipeline.Sink
	if cfg.ObjectStore.Enabled() {
		objects, err := objectstore.New(cfg.ObjectStore)
		if err != nil {
			log.Error("failed to create object store", "error", err)
			os.Exit(1)
		}
		if err := objects.EnsureBucket(ctx); err != nil {
			log.Error("failed to prepare bucket", "bucket", cfg.ObjectStore.Bucket, "error", err)
			os.Exit(1)
		}
		sink = objects
	}

	svc := handler.NewService(st, bc, pipeline.NewExporter(output, sink), output, handler.Options{
		PageSize:     cfg.PageSize,
		YearField:    cfg.YearField,
		PollInterval: cfg.PollInterval,
		RemoteStages: cfg.RemoteStages,
	}, log)
	defer svc.Close()

	// Create router
	r := router.New(log)
	api.RegisterRoutes(r, svc)
	srv := r.Server(cfg.ListenAddr, cfg.ReadTimeout, cfg.WriteTimeout)

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting API server", "version", version, "addr", cfg.ListenAddr,
			"backend", cfg.BackendURL != "", "object_store", cfg.ObjectStore.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}
