package repository

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"FxChart/internal/domain/models"
	"FxChart/internal/domain/repository"
	httpx "FxChart/pkg/http"

	"github.com/shopspring/decimal"
)

// HTTPMarketData reads candles from a REST provider that uses the M1..W
// granularity vocabulary.
type HTTPMarketData struct {
	client  *httpx.Client
	baseURL string
	token   string
}

// NewHTTPMarketData creates the upstream market-data client.
func NewHTTPMarketData(client *httpx.Client, baseURL, token string) repository.MarketData {
	return &HTTPMarketData{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
	}
}

type candlesResponse struct {
	Instrument  string           `json:"instrument"`
	Granularity string           `json:"granularity"`
	Candles     []upstreamCandle `json:"candles"`
}

type upstreamOHLC struct {
	O string `json:"o"`
	H string `json:"h"`
	L string `json:"l"`
	C string `json:"c"`
}

type upstreamCandle struct {
	Time     time.Time     `json:"time"`
	Volume   int64         `json:"volume"`
	Complete bool          `json:"complete"`
	Mid      *upstreamOHLC `json:"mid"`
	Bid      *upstreamOHLC `json:"bid"`
	Ask      *upstreamOHLC `json:"ask"`
}

func (m *HTTPMarketData) Candles(ctx context.Context, q repository.CandlesQuery) ([]models.Candle, error) {
	price := q.Price
	if price == "" {
		price = repository.PriceMid
	}
	opts := &httpx.RequestOptions{
		Method: httpx.MethodGet,
		URL:    fmt.Sprintf("%s/v3/instruments/%s/candles", m.baseURL, url.PathEscape(q.Instrument)),
		QueryParams: map[string][]string{
			"granularity": {q.Granularity.String()},
			"from":        {q.From.UTC().Format(time.RFC3339)},
			"to":          {q.To.UTC().Format(time.RFC3339)},
			"price":       {price},
		},
		Headers: map[string]string{"Accept": "application/json"},
	}
	if m.token != "" {
		opts.Headers["Authorization"] = "Bearer " + m.token
	}

	var resp candlesResponse
	if err := m.client.SendAndParse(ctx, opts, &resp); err != nil {
		return nil, fmt.Errorf("fetch candles %s %s: %w", q.Instrument, q.Granularity, err)
	}

	out := make([]models.Candle, 0, len(resp.Candles))
	for i, uc := range resp.Candles {
		c, err := uc.toCandle(price)
		if err != nil {
			return nil, fmt.Errorf("candle %d of %s: %w", i, q.Instrument, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (uc upstreamCandle) toCandle(price string) (models.Candle, error) {
	var ohlc *upstreamOHLC
	switch price {
	case repository.PriceBid:
		ohlc = uc.Bid
	case repository.PriceAsk:
		ohlc = uc.Ask
	default:
		ohlc = uc.Mid
	}
	if ohlc == nil {
		return models.Candle{}, fmt.Errorf("missing %s prices", price)
	}
	var prices [4]decimal.Decimal
	for i, s := range []string{ohlc.O, ohlc.H, ohlc.L, ohlc.C} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return models.Candle{}, fmt.Errorf("parse price %q: %w", s, err)
		}
		prices[i] = d
	}
	return models.Candle{
		Time:     uc.Time.UTC(),
		Open:     prices[0],
		High:     prices[1],
		Low:      prices[2],
		Close:    prices[3],
		Volume:   uc.Volume,
		Complete: uc.Complete,
	}, nil
}
