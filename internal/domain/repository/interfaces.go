package repository

import (
	"context"
	"time"

	"FxChart/internal/domain/models"
)

// Price components a provider can build candles from.
const (
	PriceMid = "M"
	PriceBid = "B"
	PriceAsk = "A"
)

// IsValidPrice reports whether p is one of PriceMid, PriceBid or PriceAsk.
func IsValidPrice(p string) bool {
	return p == PriceMid || p == PriceBid || p == PriceAsk
}

// CandlesQuery selects a candle range from the market-data provider.
type CandlesQuery struct {
	Instrument  string
	Granularity Granularity
	Price       string
	From        time.Time
	To          time.Time
}

// MarketData reads candles from the upstream provider.
type MarketData interface {
	Candles(ctx context.Context, q CandlesQuery) ([]models.Candle, error)
}

// Publisher pushes refreshed candle series to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, series *models.CandleSeries) error
}

type Metrics interface {
	RecordGranularity(g string)
	RecordError(kind string)
	RecordCache(hit bool)
	RecordLatency(op string, seconds float64)
}
