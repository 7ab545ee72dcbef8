package interfaces

import (
	"context"
	"time"

	"news-impact-engine/internal/types"
)

// PriceSource fetches daily OHLCV bars for a ticker over [start, end],
// ascending by date. An empty series with nil error means the symbol has
// no data in the window.
type PriceSource interface {
	GetPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error)
}

// BenchmarkSource looks up precomputed benchmark returns for a benchmark
// ticker on a given event date. Missing horizons come back nil inside
// the result; a missing row entirely returns (nil, nil).
type BenchmarkSource interface {
	GetBenchmarkReturns(ctx context.Context, benchmark string, eventDate time.Time) (*types.HorizonReturns, error)
}

// SectorMapper resolves a ticker (with optional company-name fallback)
// to its sector benchmark ETF. ok is false when no mapping exists.
type SectorMapper interface {
	SectorETF(ctx context.Context, ticker, companyName string) (etf string, ok bool)
}

// MarketCapSource reports the market capitalization in whole USD for a
// ticker. ok is false when the cap is unknown.
type MarketCapSource interface {
	MarketCapUSD(ctx context.Context, ticker string) (cap int64, ok bool)
}
