package marketdata

import (
	"context"
	"math"
	"math/rand"
	"time"

	"news-impact-engine/internal/types"
)

// MockPriceSource generates deterministic daily bars for testing and
// development. The same ticker always yields the same series.
type MockPriceSource struct {
	// Series overrides generation for specific tickers when set.
	Series map[string][]types.PriceBar
}

// NewMockPriceSource creates a mock source with no fixed series.
func NewMockPriceSource() *MockPriceSource {
	return &MockPriceSource{Series: map[string][]types.PriceBar{}}
}

// GetPrices returns bars within [start, end] for the ticker, generating
// a random walk seeded by the ticker when no fixed series is set.
func (m *MockPriceSource) GetPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	if fixed, ok := m.Series[ticker]; ok {
		out := make([]types.PriceBar, 0, len(fixed))
		for _, b := range fixed {
			if !b.Date.Before(start) && !b.Date.After(end) {
				out = append(out, b)
			}
		}
		return out, nil
	}

	seed := int64(0)
	for _, c := range ticker {
		seed = seed*31 + int64(c)
	}
	r := rand.New(rand.NewSource(seed))

	price := 50.0 + r.Float64()*200.0
	var bars []types.PriceBar
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		drift := (r.Float64() - 0.5) * 0.04
		open := price
		cl := price * (1 + drift)
		high := math.Max(open, cl) * (1 + r.Float64()*0.01)
		low := math.Min(open, cl) * (1 - r.Float64()*0.01)
		bars = append(bars, types.PriceBar{
			Date:   d,
			Open:   open,
			High:   high,
			Low:    low,
			Close:  cl,
			Volume: 500_000 + r.Int63n(5_000_000),
		})
		price = cl
	}
	return bars, nil
}
