package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FxChart/internal/service/live"
	"FxChart/internal/service/ratelimit"
	"FxChart/internal/usecase"
	"FxChart/pkg/config"
	xhttp "FxChart/pkg/http"
	applogger "FxChart/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	poller     *usecase.CandlePoller
	hub        *live.Hub
	limiter    *ratelimit.Limiter
	closers    []io.Closer
}

// New creates a new App instance with all dependencies. poller may be nil.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	poller *usecase.CandlePoller,
	hub *live.Hub,
	limiter *ratelimit.Limiter,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		poller:     poller,
		hub:        hub,
		limiter:    limiter,
	}
}

// OnClose registers resources released after the HTTP server stops.
func (a *App) OnClose(c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, c)
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("fxchart started",
		applogger.String("env", a.cfg.Environment),
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("cache", a.cfg.Cache.Backend),
		applogger.Bool("poller", a.poller != nil),
	)

	g, gctx := errgroup.WithContext(ctx)
	if a.poller != nil {
		g.Go(func() error { return a.poller.Run(gctx) })
	}
	if a.limiter != nil {
		g.Go(func() error {
			a.pruneLimiter(gctx)
			return nil
		})
	}

	<-gctx.Done()
	a.log.Info("shutdown signal received")
	err := g.Wait()
	if err != nil {
		a.log.Error("background worker failed", applogger.Error(err))
	}
	a.shutdown()
	return err
}

func (a *App) pruneLimiter(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			a.limiter.Prune()
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	a.log.Info("shutting down...")

	if a.hub != nil {
		a.hub.Close()
	}
	if err := a.httpServer.Stop(context.Background()); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.log.Warn("close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
}
