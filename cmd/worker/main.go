package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opendoors/invoice-agent/internal/bootstrap"
	"github.com/opendoors/invoice-agent/internal/config"
	"github.com/opendoors/invoice-agent/internal/observability/logging"
	"github.com/opendoors/invoice-agent/internal/observability/metrics"
)

func main() {
	cfg := config.Load()
	log := logging.NewJSONLogger("worker", cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg, log)
	if err != nil {
		log.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	workerMetrics := metrics.NewWorkerMetrics("worker")
	metricsServer := &http.Server{
		Addr:    ":" + cfg.WorkerMetricsPort,
		Handler: workerMetrics.Handler(),
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker metrics server failed", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	log.Info("worker subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeUploadReceived(ctx, func(handlerCtx context.Context, uploadID string) error {
		processCtx, cancel := context.WithTimeout(handlerCtx, 5*time.Minute)
		defer cancel()

		if upload, lookupErr := app.Uploads.GetByID(processCtx, uploadID); lookupErr == nil {
			workerMetrics.ObserveQueueLag("worker", time.Since(upload.CreatedAt))
		}

		workerMetrics.StartUpload()
		start := time.Now()
		processErr := app.ProcessUC.ProcessByID(processCtx, uploadID)

		status := "failed"
		if upload, lookupErr := app.Uploads.GetByID(processCtx, uploadID); lookupErr == nil {
			status = string(upload.Status)
			if upload.FailureKind != "" {
				workerMetrics.RecordRejection("worker", string(upload.FailureKind))
			}
		}
		workerMetrics.FinishUpload("worker", status, time.Since(start))

		return processErr
	})
	if err != nil {
		log.Error("worker subscribe failed", "error", err)
		os.Exit(1)
	}
}
