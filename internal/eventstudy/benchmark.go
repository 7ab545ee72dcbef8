package eventstudy

import (
	"context"
	"sort"
	"strings"

	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/stats"
	"news-impact-engine/internal/types"
)

// StaticSectorMapper resolves tickers to sector ETFs from two tables: an
// exact ticker map and a company-name fragment map. Fragment lookup is
// deterministic: candidates are checked longest fragment first, ties
// broken lexicographically.
type StaticSectorMapper struct {
	byTicker  map[string]string
	fragments []nameFragment
}

type nameFragment struct {
	fragment string
	etf      string
}

// NewStaticSectorMapper builds a mapper. Keys of byName are lowercase
// company-name fragments.
func NewStaticSectorMapper(byTicker, byName map[string]string) *StaticSectorMapper {
	frags := make([]nameFragment, 0, len(byName))
	for k, v := range byName {
		frags = append(frags, nameFragment{fragment: strings.ToLower(k), etf: v})
	}
	sort.Slice(frags, func(i, j int) bool {
		if len(frags[i].fragment) != len(frags[j].fragment) {
			return len(frags[i].fragment) > len(frags[j].fragment)
		}
		return frags[i].fragment < frags[j].fragment
	})
	upper := make(map[string]string, len(byTicker))
	for k, v := range byTicker {
		upper[strings.ToUpper(k)] = v
	}
	return &StaticSectorMapper{byTicker: upper, fragments: frags}
}

// SectorETF resolves the sector benchmark for a ticker, falling back to
// a substring match on the company name.
func (m *StaticSectorMapper) SectorETF(_ context.Context, ticker, companyName string) (string, bool) {
	if etf, ok := m.byTicker[strings.ToUpper(ticker)]; ok {
		return etf, true
	}
	name := strings.ToLower(companyName)
	if name == "" {
		return "", false
	}
	for _, f := range m.fragments {
		if strings.Contains(name, f.fragment) {
			return f.etf, true
		}
	}
	return "", false
}

// ResolveBenchmark picks the benchmark ticker for a pair: the sector ETF
// when mapped, otherwise the market default.
func ResolveBenchmark(ctx context.Context, mapper interfaces.SectorMapper, ticker, companyName, marketDefault string) string {
	if mapper != nil {
		if etf, ok := mapper.SectorETF(ctx, ticker, companyName); ok {
			return etf
		}
	}
	return marketDefault
}

// AbnormalReturns subtracts benchmark returns from stock returns per
// horizon. A nil on either side keeps the abnormal value nil; missing
// benchmark data never masquerades as zero outperformance.
func AbnormalReturns(m *Metrics, bench *types.HorizonReturns) (ar1, ar3, ar5, ar10 *float64) {
	if m == nil || bench == nil {
		return nil, nil, nil, nil
	}
	sub := func(stock, b *float64) *float64 {
		if stock == nil || b == nil {
			return nil
		}
		return types.Float64(stats.Round(*stock-*b, returnPrecision))
	}
	return sub(m.Return1D, bench.R1D),
		sub(m.Return3D, bench.R3D),
		sub(m.Return5D, bench.R5D),
		sub(m.Return10D, bench.R10D)
}
