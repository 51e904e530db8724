package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"FxChart/internal/domain/models"
	domrepo "FxChart/internal/domain/repository"
	"FxChart/internal/service/cache"
	"FxChart/internal/services/granularity"
	applogger "FxChart/pkg/logger"
	"FxChart/pkg/util"
)

var (
	ErrInvalidInstrument = errors.New("invalid instrument")
	ErrInvalidPrice      = errors.New("invalid price component")
	ErrUpstream          = errors.New("upstream market data")
)

var instrumentRe = regexp.MustCompile(`^[A-Z0-9]+_[A-Z0-9]+$`)

// ValidInstrument reports whether s looks like BASE_QUOTE, e.g. EUR_USD.
func ValidInstrument(s string) bool { return instrumentRe.MatchString(s) }

// ChartOption configures ChartUseCase.
type ChartOption func(*ChartUseCase)

// ChartUseCase turns chart requests into granularity-aligned candle series.
type ChartUseCase struct {
	calc     *granularity.Calculator
	market   domrepo.MarketData
	cache    cache.BytesCache
	cacheTTL time.Duration
	metrics  domrepo.Metrics
	log      *applogger.Logger
}

func NewChartUseCase(calc *granularity.Calculator, market domrepo.MarketData, opts ...ChartOption) *ChartUseCase {
	uc := &ChartUseCase{
		calc:     calc,
		market:   market,
		cacheTTL: 30 * time.Second,
		metrics:  nopMetrics{},
		log:      applogger.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// WithCache enables caching of upstream responses.
func WithCache(c cache.BytesCache, ttl time.Duration) ChartOption {
	return func(uc *ChartUseCase) {
		uc.cache = c
		if ttl > 0 {
			uc.cacheTTL = ttl
		}
	}
}

func WithMetrics(m domrepo.Metrics) ChartOption {
	return func(uc *ChartUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithLogger(l *applogger.Logger) ChartOption {
	return func(uc *ChartUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

// ResolvedRange is a request range snapped to the boundaries of its granularity.
type ResolvedRange struct {
	Granularity domrepo.Granularity
	From        time.Time
	To          time.Time
	Points      int
}

// ResolveRange picks a granularity for [from, to) and aligns the range to it.
// A nil target selects the calculator default.
func (uc *ChartUseCase) ResolveRange(from, to time.Time, target *int) (*ResolvedRange, error) {
	g, err := uc.calc.Granularity(from, to, target)
	if err != nil {
		uc.metrics.RecordError(errorKind(err))
		return nil, err
	}
	uc.metrics.RecordGranularity(g.String())
	return uc.align(from, to, g)
}

// DataPoints counts whole g buckets in [from, to) for a raw granularity code.
func (uc *ChartUseCase) DataPoints(from, to time.Time, code string) (domrepo.Granularity, int, error) {
	g, err := domrepo.ParseGranularity(code)
	if err != nil {
		uc.metrics.RecordError(errorKind(err))
		return "", 0, err
	}
	n, err := uc.calc.DataPoints(from, to, g)
	if err != nil {
		return "", 0, err
	}
	return g, n, nil
}

// Granularities lists the supported granularities, finest first.
func (uc *ChartUseCase) Granularities() []domrepo.Granularity {
	return uc.calc.Available()
}

func (uc *ChartUseCase) align(from, to time.Time, g domrepo.Granularity) (*ResolvedRange, error) {
	af, at := util.AlignFromTo(from, to, g.Duration())
	if !af.Before(at) {
		at = af.Add(g.Duration())
	}
	n, err := uc.calc.DataPoints(af, at, g)
	if err != nil {
		return nil, err
	}
	return &ResolvedRange{Granularity: g, From: af, To: at, Points: n}, nil
}

type GetCandlesParams struct {
	Instrument  string
	From        time.Time
	To          time.Time
	Granularity string // empty selects one from the range
	Target      *int   // nil selects the calculator default
	Price       string // M, B or A; empty selects mid
	Refresh     bool // skip the cache read, still store the result
}

// GetCandles returns the candle series for an instrument over the aligned range.
func (uc *ChartUseCase) GetCandles(ctx context.Context, p GetCandlesParams) (*models.CandleSeries, error) {
	if !ValidInstrument(p.Instrument) {
		uc.metrics.RecordError(errorKind(ErrInvalidInstrument))
		return nil, fmt.Errorf("%w: %q", ErrInvalidInstrument, p.Instrument)
	}
	price := p.Price
	if price == "" {
		price = domrepo.PriceMid
	}
	if !domrepo.IsValidPrice(price) {
		uc.metrics.RecordError(errorKind(ErrInvalidPrice))
		return nil, fmt.Errorf("%w: %q", ErrInvalidPrice, p.Price)
	}

	var (
		rr  *ResolvedRange
		err error
	)
	if p.Granularity == "" {
		rr, err = uc.ResolveRange(p.From, p.To, p.Target)
	} else {
		rr, err = uc.explicitRange(p.From, p.To, p.Granularity)
	}
	if err != nil {
		return nil, err
	}

	key := cacheKey(p.Instrument, price, rr)
	if !p.Refresh {
		if series, ok := uc.cached(ctx, key); ok {
			return series, nil
		}
	}

	start := time.Now()
	candles, err := uc.market.Candles(ctx, domrepo.CandlesQuery{
		Instrument:  p.Instrument,
		Granularity: rr.Granularity,
		Price:       price,
		From:        rr.From,
		To:          rr.To,
	})
	uc.metrics.RecordLatency("upstream_candles", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError(errorKind(ErrUpstream))
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	if candles == nil {
		candles = []models.Candle{}
	}

	series := &models.CandleSeries{
		Instrument:  p.Instrument,
		Granularity: rr.Granularity.String(),
		Price:       price,
		From:        rr.From,
		To:          rr.To,
		Points:      rr.Points,
		Candles:     candles,
	}
	uc.store(ctx, key, series)
	return series, nil
}

func (uc *ChartUseCase) explicitRange(from, to time.Time, code string) (*ResolvedRange, error) {
	if err := granularity.ValidateRange(from, to); err != nil {
		uc.metrics.RecordError(errorKind(err))
		return nil, err
	}
	g, err := domrepo.ParseGranularity(code)
	if err != nil {
		uc.metrics.RecordError(errorKind(err))
		return nil, err
	}
	return uc.align(from, to, g)
}

func (uc *ChartUseCase) cached(ctx context.Context, key string) (*models.CandleSeries, bool) {
	if uc.cache == nil {
		return nil, false
	}
	b, ok, err := uc.cache.GetBytes(ctx, key)
	if err != nil {
		uc.log.Warn("candle cache read failed", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	uc.metrics.RecordCache(ok)
	if !ok {
		return nil, false
	}
	var series models.CandleSeries
	if err := json.Unmarshal(b, &series); err != nil {
		uc.log.Warn("candle cache entry corrupt", applogger.String("key", key), applogger.Error(err))
		return nil, false
	}
	return &series, true
}

func (uc *ChartUseCase) store(ctx context.Context, key string, series *models.CandleSeries) {
	if uc.cache == nil {
		return
	}
	b, err := json.Marshal(series)
	if err != nil {
		uc.log.Warn("candle series encode failed", applogger.String("key", key), applogger.Error(err))
		return
	}
	if err := uc.cache.SetBytes(ctx, key, b, uc.cacheTTL); err != nil {
		uc.log.Warn("candle cache write failed", applogger.String("key", key), applogger.Error(err))
	}
}

func cacheKey(instrument, price string, rr *ResolvedRange) string {
	return fmt.Sprintf("candles:%s:%s:%s:%d:%d", instrument, rr.Granularity, price, rr.From.Unix(), rr.To.Unix())
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, granularity.ErrInvalidRange):
		return "invalid_range"
	case errors.Is(err, granularity.ErrInvalidTarget):
		return "invalid_target"
	case errors.Is(err, granularity.ErrUnknownGranularity):
		return "unknown_granularity"
	case errors.Is(err, ErrInvalidInstrument):
		return "invalid_instrument"
	case errors.Is(err, ErrInvalidPrice):
		return "invalid_price"
	case errors.Is(err, ErrUpstream):
		return "upstream"
	default:
		return "internal"
	}
}

type nopMetrics struct{}

func (nopMetrics) RecordGranularity(string) {}
func (nopMetrics) RecordError(string) {}
func (nopMetrics) RecordCache(bool) {}
func (nopMetrics) RecordLatency(string, float64) {}
