package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/blernix/tableback-sub000/internal/infrastructure/analytics"
	"github.com/blernix/tableback-sub000/internal/infrastructure/config"
	"github.com/blernix/tableback-sub000/internal/infrastructure/hub"
	"github.com/blernix/tableback-sub000/internal/infrastructure/logger"
	"github.com/blernix/tableback-sub000/internal/infrastructure/server"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogrusLogger(cfg.LoggerConfig())

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector())
	promRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := hub.NewMetrics(promRegistry)

	registry := hub.NewRegistry(hub.Options{
		Limits: hub.Limits{
			MaxPerSubject: cfg.Hub.MaxPerSubject,
			MaxPerTenant:  cfg.Hub.MaxPerTenant,
		},
		HeartbeatInterval: cfg.Hub.HeartbeatInterval,
		WriteTimeout:      cfg.Hub.WriteTimeout,
		Logger:            log,
		Metrics:           metrics,
	})
	recorder := analytics.NewLogRecorder(log)
	broadcaster := hub.NewBroadcaster(registry, recorder, cfg.Hub.WriteTimeout, log, metrics)
	reaper := hub.NewReaper(registry, cfg.Hub.SweepInterval, cfg.Hub.MaxDuration, log, metrics)

	ctx := context.Background()
	sctx := WithSignal(ctx)

	if err := reaper.Start(sctx); err != nil {
		log.Errorf("failed to start reaper: %v", err)
		return
	}

	router := InitRouter(registry, broadcaster, promRegistry, log)
	httpSrv := server.NewHTTPServer(router, server.Options{
		Addr:         cfg.HTTP.Listen,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	})

	app := newApplication(log, httpSrv, registry)
	if err := app.Run(sctx); err != nil {
		log.Errorf("failed to run application: %v", err)
	}
}

type Application struct {
	logger   logger.Logger
	httpSrv  server.Server
	registry *hub.Registry
}

func newApplication(
	log logger.Logger,
	httpSrv *server.HTTPServer,
	registry *hub.Registry,
) *Application {
	return &Application{
		logger:   log.WithField("app", "eventhub"),
		httpSrv:  httpSrv,
		registry: registry,
	}
}

func (app *Application) Run(ctx context.Context) error {
	eg := errgroup.Group{}

	eg.Go(func() error {
		return app.httpSrv.Start(ctx)
	})

	eg.Go(func() error {
		<-ctx.Done()

		gracefulShutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			5*time.Second,
		)
		defer cancel()

		// Tear down connections first so stream handlers unblock and the
		// HTTP server can drain.
		app.registry.Close()

		return app.httpSrv.Stop(gracefulShutdownCtx)
	})

	return eg.Wait()
}

func WithSignal(pctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(pctx)

	go func() {
		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

		<-sigc

		cancel()
	}()

	return ctx
}
