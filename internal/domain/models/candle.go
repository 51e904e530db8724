package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle is one OHLC bucket as reported by the market-data provider.
type Candle struct {
	Time     time.Time       `json:"time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   int64           `json:"volume"`
	Complete bool            `json:"complete"`
}

// CandleSeries is the chart payload for one instrument over an aligned range.
// Points is the candle count the range should produce; Candles may hold fewer
// when the market was closed.
type CandleSeries struct {
	Instrument  string    `json:"instrument"`
	Granularity string    `json:"granularity"`
	Price       string    `json:"price"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Points      int       `json:"points"`
	Candles     []Candle  `json:"candles"`
}
