package di

import (
	"context"
	"fmt"
	"io"
	"time"

	"FxChart/internal/domain/repository"
	"FxChart/internal/handler/api"
	internalrepo "FxChart/internal/repository"
	"FxChart/internal/service/cache"
	"FxChart/internal/service/live"
	"FxChart/internal/service/ratelimit"
	"FxChart/internal/services/granularity"
	"FxChart/internal/usecase"
	"FxChart/pkg/config"
	xhttp "FxChart/pkg/http"
	applogger "FxChart/pkg/logger"
	"FxChart/pkg/metrics"
	"FxChart/pkg/server"

	"github.com/prometheus/client_golang/prometheus"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideRegistry creates the Prometheus registry served at the metrics path.
func ProvideRegistry() *prometheus.Registry {
	return metrics.NewRegistry()
}

// ProvideMetrics creates the domain metrics recorder.
func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideCalculator creates the granularity calculator with the configured default target.
func ProvideCalculator(cfg *config.Config) (*granularity.Calculator, error) {
	return granularity.NewCalculator(cfg.Granularity.DefaultTarget)
}

// ProvideHTTPClient creates the retrying upstream HTTP client.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithTimeout(cfg.Upstream.Timeout),
		xhttp.WithRetry(cfg.Upstream.RetryMax, cfg.Upstream.RetryWaitMin, cfg.Upstream.RetryWaitMax),
	)
}

// ProvideMarketData creates the upstream candle repository.
func ProvideMarketData(client *xhttp.Client, cfg *config.Config) repository.MarketData {
	return internalrepo.NewHTTPMarketData(client, cfg.Upstream.BaseURL, cfg.Upstream.Token)
}

// ProvideCache creates the candle cache selected by cache.backend.
// Redis-backed caches implement io.Closer and are closed by the App.
func ProvideCache(cfg *config.Config, l *applogger.Logger) (cache.BytesCache, error) {
	mem := func() *cache.TTLCache { return cache.NewTTLCache(cfg.Cache.MaxEntries) }

	switch cfg.Cache.Backend {
	case "redis", "layered":
		rc := cache.NewRedisCache(cache.RedisConfig{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			_ = rc.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Cache.Redis.Addr, err)
		}
		l.Info("candle cache ready", applogger.String("backend", cfg.Cache.Backend), applogger.String("addr", cfg.Cache.Redis.Addr))
		if cfg.Cache.Backend == "layered" {
			return cache.NewLayeredCache(mem(), rc, cfg.Cache.TTL), nil
		}
		return rc, nil
	default:
		return mem(), nil
	}
}

// ProvideChartUseCase creates the chart use case.
func ProvideChartUseCase(
	calc *granularity.Calculator,
	md repository.MarketData,
	c cache.BytesCache,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.ChartUseCase {
	return usecase.NewChartUseCase(calc, md,
		usecase.WithCache(c, cfg.Cache.TTL),
		usecase.WithMetrics(m),
		usecase.WithLogger(l.With(applogger.String("component", "chart"))),
	)
}

// ProvideHub creates the websocket hub for live candles.
func ProvideHub(l *applogger.Logger) *live.Hub {
	return live.NewHub(l.With(applogger.String("component", "live")))
}

// ProvidePoller creates the watchlist poller, or nil when disabled.
func ProvidePoller(cfg *config.Config, chart *usecase.ChartUseCase, hub *live.Hub, l *applogger.Logger) *usecase.CandlePoller {
	if !cfg.Poller.Enabled {
		return nil
	}
	return usecase.NewCandlePoller(chart, hub, usecase.PollerConfig{
		Instruments: cfg.Poller.Instruments,
		Interval:    cfg.Poller.Interval,
		Lookback:    cfg.Poller.Lookback,
		MaxBackoff:  cfg.Poller.MaxBackoff,
	}, l.With(applogger.String("component", "poller")))
}

// ProvideLimiter creates the per-client API rate limiter.
func ProvideLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideChartHandler creates the echo handler.
func ProvideChartHandler(l *applogger.Logger, chart *usecase.ChartUseCase, hub *live.Hub, limiter *ratelimit.Limiter) *api.ChartEchoHandler {
	return api.NewChartEchoHandler(l.With(applogger.String("component", "api")), chart, hub, limiter)
}

// ProvideHTTPServer creates the echo server with metrics and middleware.
func ProvideHTTPServer(cfg *config.Config, h *api.ChartEchoHandler, reg *prometheus.Registry, l *applogger.Logger) *xhttp.Server {
	path := ""
	if cfg.Metrics.Enabled {
		path = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
		xhttp.WithMetrics(reg, path, cfg.Server.SlowThreshold),
	)
}

// ProvideApp creates the application server and hands it the resources to
// release on shutdown.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	poller *usecase.CandlePoller,
	hub *live.Hub,
	limiter *ratelimit.Limiter,
	c cache.BytesCache,
) *server.App {
	app := server.New(cfg, l, srv, poller, hub, limiter)
	if closer, ok := c.(io.Closer); ok {
		app.OnClose(closer)
	}
	return app
}
