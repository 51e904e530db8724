package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	domrepo "FxChart/internal/domain/repository"
	applogger "FxChart/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// PollerConfig controls CandlePoller.
type PollerConfig struct {
	Instruments []string
	Interval    time.Duration
	Lookback    time.Duration
	MaxBackoff  time.Duration
}

// CandlePoller keeps the cached series of a watchlist fresh and publishes
// every refresh to live subscribers.
type CandlePoller struct {
	chart *ChartUseCase
	pub   domrepo.Publisher
	cfg   PollerConfig
	log   *applogger.Logger
	now   func() time.Time
}

func NewCandlePoller(chart *ChartUseCase, pub domrepo.Publisher, cfg PollerConfig, log *applogger.Logger) *CandlePoller {
	if log == nil {
		log = applogger.Nop()
	}
	return &CandlePoller{chart: chart, pub: pub, cfg: cfg, log: log, now: time.Now}
}

// Run polls every instrument concurrently until ctx is cancelled.
func (p *CandlePoller) Run(ctx context.Context) error {
	if len(p.cfg.Instruments) == 0 {
		return nil
	}
	if p.cfg.Interval <= 0 || p.cfg.Lookback <= 0 {
		return fmt.Errorf("poller: interval and lookback must be positive")
	}

	p.log.Info("candle poller started",
		applogger.Strings("instruments", p.cfg.Instruments),
		applogger.Duration("interval_ms", p.cfg.Interval),
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, inst := range p.cfg.Instruments {
		inst := inst
		g.Go(func() error {
			p.watch(gctx, inst)
			return nil
		})
	}
	err := g.Wait()
	p.log.Info("candle poller stopped")
	return err
}

func (p *CandlePoller) watch(ctx context.Context, instrument string) {
	failures := 0
	for {
		delay := p.cfg.Interval
		if err := p.Poll(ctx, instrument); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			delay = Backoff(p.cfg.Interval, p.cfg.MaxBackoff, failures)
			p.log.Warn("candle poll failed",
				applogger.String("instrument", instrument),
				applogger.Int("failures", failures),
				applogger.Duration("retry_in_ms", delay),
				applogger.Error(err),
			)
		} else {
			failures = 0
		}

		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
	}
}

// Poll refreshes the lookback window of one instrument and publishes it.
func (p *CandlePoller) Poll(ctx context.Context, instrument string) error {
	to := p.now().UTC()
	series, err := p.chart.GetCandles(ctx, GetCandlesParams{
		Instrument: instrument,
		From:       to.Add(-p.cfg.Lookback),
		To:         to,
		Refresh:    true,
	})
	if err != nil {
		return err
	}
	if p.pub == nil {
		return nil
	}
	if err := p.pub.Publish(ctx, series); err != nil && !errors.Is(err, context.Canceled) {
		// a failed publish does not make the refreshed cache stale
		p.log.Warn("publish candles failed", applogger.String("instrument", instrument), applogger.Error(err))
	}
	return nil
}

// Backoff returns min(base * 2^failures, max). A non-positive max disables the
// cap; the result then saturates instead of overflowing.
func Backoff(base, max time.Duration, failures int) time.Duration {
	d := base
	for i := 0; i < failures; i++ {
		if max > 0 && d >= max {
			return max
		}
		if d > math.MaxInt64/2 {
			break
		}
		d *= 2
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
