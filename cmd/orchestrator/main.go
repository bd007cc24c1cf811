package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akozyrev/event-orchestrator/internal/bootstrap"
	"github.com/akozyrev/event-orchestrator/internal/config"
	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

func main() {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewOrchestrator(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", app.Metrics.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	metricsServer := &http.Server{
		Addr:         ":" + cfg.WorkerMetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		app.Logger.Info("metrics listening", "port", cfg.WorkerMetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("metrics server error: %v", err)
		}
	}()

	app.Logger.Info("orchestrator subscribed", "subject", cfg.NATSSubject)
	err = app.Queue.SubscribeEvents(ctx, func(handlerCtx context.Context, event domain.Event) error {
		dispatchCtx, cancel := context.WithTimeout(handlerCtx, time.Minute)
		defer cancel()
		return app.Dispatcher.HandleEvent(dispatchCtx, event)
	})
	if err != nil {
		app.Logger.Error("subscription ended with error", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	app.Sessions.Shutdown(shutdownCtx, "worker shutdown")
	app.Launcher.Wait()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		app.Logger.Warn("metrics shutdown error", "error", err)
	}
}
