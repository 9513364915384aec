package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/mwlbridge/httpapi"
	"github.com/caio-sobreiro/mwlbridge/mwlsync"
	"github.com/caio-sobreiro/mwlbridge/server"
	"github.com/caio-sobreiro/mwlbridge/services"
	"github.com/caio-sobreiro/mwlbridge/source"
	"github.com/caio-sobreiro/mwlbridge/types"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the DICOM worklist SCP, the sync scheduler and the admin HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	a, err := openApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dispatcher := mwlsync.NewDispatcher(a.sync, cfg.SyncWorkers, cfg.SyncQueueSize, logger)
	dispatcher.Start(ctx)
	go dispatcher.Supervise()
	defer dispatcher.Stop()

	var wg sync.WaitGroup
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	run(func() { mwlsync.NewScheduler(a.sync, cfg.SyncInterval, logger).Run(ctx) })

	if cfg.SourceNotifyChannel != "" {
		listener := source.NewListener(a.pool, cfg.SourceNotifyChannel, dispatcher, logger)
		run(func() { listener.Start(ctx, cfg.SyncInterval) })
	}

	registry := services.NewRegistry(logger)
	registry.RegisterHandler(types.CEchoRQ, services.NewEchoService(logger))
	registry.RegisterHandler(types.CFindRQ, services.NewWorklistService(a.store, cfg.StationAETitle, logger))

	dicomErr := make(chan error, 1)
	run(func() {
		dicomErr <- server.ListenAndServe(ctx, cfg.DICOMAddr, cfg.AETitle, registry,
			server.WithLogger(logger),
			server.WithReadTimeout(cfg.DICOMReadTimeout),
			server.WithWriteTimeout(cfg.DICOMWriteTimeout),
			server.WithStrictCalledAE(cfg.StrictCalledAE),
		)
	})

	e := httpapi.NewServer(httpapi.NewHandler(a.store, a.sync, dispatcher, logger), logger)
	httpErr := make(chan error, 1)
	go func() {
		logger.Info().Str("address", cfg.HTTPAddr).Msg("Admin HTTP listening")
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("Shutting down")
	case err = <-dicomErr:
		logger.Error().Err(err).Msg("DICOM server stopped")
	case err = <-httpErr:
		logger.Error().Err(err).Msg("Admin HTTP stopped")
	}

	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn().Err(shutdownErr).Msg("Admin HTTP shutdown")
	}

	wg.Wait()
	return err
}
