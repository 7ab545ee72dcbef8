package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/stats"
	"news-impact-engine/internal/trace"
	"news-impact-engine/internal/types"
)

// confounderWeights are the confidence penalties per confounder type.
// Earnings dominate; macro events and sector moves follow.
var confounderWeights = map[types.ConfounderType]float64{
	types.ConfounderEarnings:   0.30,
	types.ConfounderFDAPDUFA:   0.20,
	types.ConfounderFedMeeting: 0.20,
	types.ConfounderCPIRelease: 0.20,
	types.ConfounderSectorMove: 0.15,
	types.ConfounderClustering: 0.10,
	types.ConfounderOther:      0.10,
}

const defaultConfounderWeight = 0.10

// Detector finds competing explanations for a price move around a news
// event: curated calendar entries plus computed sector-move and
// article-clustering signals.
type Detector struct {
	catalog    interfaces.ConfounderCatalog
	benchmarks interfaces.BenchmarkSource
	sectors    interfaces.SectorMapper
	mentions   interfaces.MentionCounter

	windowDays          int
	sectorMoveThreshold float64
	clusterThreshold    int
	minConfidence       float64
}

// NewDetector wires a detector. Any dependency may be nil; its signal
// is then skipped.
func NewDetector(
	catalog interfaces.ConfounderCatalog,
	benchmarks interfaces.BenchmarkSource,
	sectors interfaces.SectorMapper,
	mentions interfaces.MentionCounter,
	windowDays int,
	sectorMoveThreshold float64,
	clusterThreshold int,
	minConfidence float64,
) *Detector {
	return &Detector{
		catalog:             catalog,
		benchmarks:          benchmarks,
		sectors:             sectors,
		mentions:            mentions,
		windowDays:          windowDays,
		sectorMoveThreshold: sectorMoveThreshold,
		clusterThreshold:    clusterThreshold,
		minConfidence:       minConfidence,
	}
}

// Detect collects all confounders active for the ticker around date.
func (d *Detector) Detect(ctx context.Context, ticker, companyName string, date time.Time) ([]types.Confounder, error) {
	ctx, span := trace.StartSpan(ctx, "detect-confounders")
	defer span.End()

	var out []types.Confounder

	if d.catalog != nil {
		events, err := d.catalog.EventsNear(ctx, ticker, date, d.windowDays)
		if err != nil {
			return nil, fmt.Errorf("querying confounder catalog for %s: %w", ticker, err)
		}
		for _, ev := range events {
			out = append(out, types.Confounder{
				Type:        ev.EventType,
				Description: ev.Description,
				Source:      "catalog",
			})
		}
	}

	if d.benchmarks != nil && d.sectors != nil {
		if etf, ok := d.sectors.SectorETF(ctx, ticker, companyName); ok {
			ret, err := d.benchmarks.GetBenchmarkReturns(ctx, etf, date)
			if err != nil {
				return nil, fmt.Errorf("fetching sector return for %s: %w", etf, err)
			}
			if ret != nil && ret.R1D != nil && math.Abs(*ret.R1D) > d.sectorMoveThreshold {
				out = append(out, types.Confounder{
					Type:        types.ConfounderSectorMove,
					Description: fmt.Sprintf("%s moved %.2f%% on the event day", etf, *ret.R1D),
					Source:      "computed",
				})
			}
		}
	}

	if d.mentions != nil {
		n, err := d.mentions.SameDayArticles(ctx, ticker, date)
		if err != nil {
			return nil, fmt.Errorf("counting same-day articles for %s: %w", ticker, err)
		}
		if n > d.clusterThreshold {
			out = append(out, types.Confounder{
				Type:        types.ConfounderClustering,
				Description: fmt.Sprintf("%d articles on %s the same day", n, ticker),
				Source:      "computed",
			})
		}
	}

	if len(out) > 0 {
		logger.Debug(ctx, "Confounders detected", "ticker", ticker, "count", len(out))
	}
	return out, nil
}

// ComputeConfidence turns detected confounders into an attribution
// confidence: 1 minus the summed weights, floored at zero.
func ComputeConfidence(confounders []types.Confounder) float64 {
	total := 0.0
	for _, c := range confounders {
		w, ok := confounderWeights[c.Type]
		if !ok {
			w = defaultConfounderWeight
		}
		total += w
	}
	conf := 1 - total
	if conf < 0 {
		conf = 0
	}
	return stats.Round(conf, 2)
}

// IsAlphaCandidate reports whether the move is attributable enough to
// the news to treat as signal.
func (d *Detector) IsAlphaCandidate(confidence float64) bool {
	return confidence >= d.minConfidence
}
