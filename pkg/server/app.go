package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "RateHub/internal/domain/repository"
	"RateHub/pkg/cache"
	"RateHub/pkg/config"
	xhttp "RateHub/pkg/http"
	applogger "RateHub/pkg/logger"
)

// App encapsulates the application lifecycle: HTTP server startup,
// signal handling, and ordered teardown of infrastructure clients.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	handler   xhttp.Handler
	store     cache.Service
	publisher drepo.Publisher

	httpServer *xhttp.Server
}

// New creates a new App instance. The publisher may be nil when Kafka
// is disabled.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	store cache.Service,
	publisher drepo.Publisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		handler:   handler,
		store:     store,
		publisher: publisher,
	}
}

// Run starts the HTTP server and blocks until interrupted.
func (a *App) Run() error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("server started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("environment", a.cfg.Environment))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops the HTTP server first so in-flight requests drain
// before the cache and publisher close underneath them.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.log.Warn("cache close error", applogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
