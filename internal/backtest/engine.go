package backtest

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/stats"
	"news-impact-engine/internal/types"
)

// scoreBuckets partition composite scores for calibration; samples
// below the lowest edge are ignored.
var scoreBuckets = []struct {
	label  string
	lo, hi float64 // hi exclusive, hi<0 means unbounded
}{
	{"5-10", 5, 10},
	{"10-15", 10, 15},
	{"15-20", 15, 20},
	{"20-30", 20, 30},
	{"30+", 30, -1},
}

// LayerCorrelation is one scoring layer's Pearson correlation with the
// realized 1-day abnormal return.
type LayerCorrelation struct {
	Layer          string
	R              float64
	Interpretation string
	SampleCount    int
}

// Decile is one tenth of the score-ranked sample, ascending: decile 10
// holds the highest scores.
type Decile struct {
	Index             int
	SampleCount       int
	MinScore          float64
	MaxScore          float64
	AvgAbnormalReturn float64
}

// Report is the output of one calibration run.
type Report struct {
	RunID           string
	RunDate         time.Time
	SampleCount     int
	Buckets         []types.BacktestBucket
	PrecisionAtK    *float64
	K               int
	Deciles         []Decile
	Correlations    []LayerCorrelation
	Recommendations []string
}

// Engine measures how well historical composite scores predicted
// abnormal returns. Runs are append-only; each writes fresh rows keyed
// by (run_date, bucket) and never touches earlier runs.
type Engine struct {
	windows interfaces.EventWindowStore
	store   interfaces.BacktestStore

	hitThresholdPct float64
	topK            int
	minScore        float64
}

func NewEngine(windows interfaces.EventWindowStore, store interfaces.BacktestStore, hitThresholdPct float64, topK int, minScore float64) *Engine {
	return &Engine{windows: windows, store: store, hitThresholdPct: hitThresholdPct, topK: topK, minScore: minScore}
}

// Run loads completed samples published within [start, end] whose
// composite score is at least the configured floor, evaluates them, and
// persists the bucket summaries.
func (e *Engine) Run(ctx context.Context, start, end time.Time) (*Report, error) {
	timer := logger.StartOperation(ctx, "backtest.run",
		"start", start.Format("2006-01-02"),
		"end", end.Format("2006-01-02"),
		"min_score", e.minScore)
	ctx = timer.GetContext()

	samples, err := e.windows.CompletedSamples(ctx, start, end, e.minScore)
	if err != nil {
		timer.EndWithError(err)
		return nil, fmt.Errorf("loading backtest samples: %w", err)
	}

	report := e.Evaluate(samples)
	if e.store != nil && len(report.Buckets) > 0 {
		if err := e.store.SaveBuckets(ctx, report.Buckets); err != nil {
			timer.EndWithError(err)
			return nil, fmt.Errorf("saving backtest buckets: %w", err)
		}
	}

	timer.End("samples", report.SampleCount)
	logger.Info(ctx, "Backtest run finished",
		"run_id", report.RunID, "samples", report.SampleCount,
		"buckets", len(report.Buckets))
	return report, nil
}

// Evaluate computes the full report from in-memory samples. Samples
// without a realized abnormal return are dropped up front.
func (e *Engine) Evaluate(samples []types.BacktestSample) *Report {
	report := &Report{
		RunID:   uuid.NewString(),
		RunDate: time.Now().UTC().Truncate(24 * time.Hour),
		K:       e.topK,
	}

	usable := make([]types.BacktestSample, 0, len(samples))
	for _, s := range samples {
		if s.AbnormalReturn1D != nil {
			usable = append(usable, s)
		}
	}
	report.SampleCount = len(usable)
	if len(usable) == 0 {
		return report
	}

	report.PrecisionAtK = e.precisionAtK(usable)
	report.Buckets = e.bucketize(usable, report.RunID, report.RunDate, report.PrecisionAtK)
	report.Deciles = e.deciles(usable)
	report.Correlations = e.correlations(usable)
	report.Recommendations = Recommend(report)
	return report
}

func bucketLabel(score float64) string {
	for _, b := range scoreBuckets {
		if score >= b.lo && (b.hi < 0 || score < b.hi) {
			return b.label
		}
	}
	return ""
}

func (e *Engine) bucketize(samples []types.BacktestSample, runID string, runDate time.Time, precision *float64) []types.BacktestBucket {
	grouped := map[string][]float64{}
	for _, s := range samples {
		label := bucketLabel(s.ScoreTotal)
		if label == "" {
			continue
		}
		grouped[label] = append(grouped[label], *s.AbnormalReturn1D)
	}

	var out []types.BacktestBucket
	for _, b := range scoreBuckets {
		ars, ok := grouped[b.label]
		if !ok {
			continue
		}
		hits := 0
		for _, ar := range ars {
			if math.Abs(ar) > e.hitThresholdPct {
				hits++
			}
		}
		out = append(out, types.BacktestBucket{
			RunDate:           runDate,
			Bucket:            b.label,
			RunID:             runID,
			SampleCount:       len(ars),
			AvgAbnormalReturn: types.Float64(stats.Round(stats.Mean(ars), 4)),
			MinAbnormalReturn: types.Float64(stats.Min(ars)),
			MaxAbnormalReturn: types.Float64(stats.Max(ars)),
			HitRate:           types.Float64(stats.Round(float64(hits)/float64(len(ars)), 4)),
			PrecisionAtK:      precision,
		})
	}
	return out
}

// precisionAtK ranks by composite score and measures the hit rate of
// the top K. Fewer than K samples means no verdict.
func (e *Engine) precisionAtK(samples []types.BacktestSample) *float64 {
	if len(samples) < e.topK {
		return nil
	}
	ranked := make([]types.BacktestSample, len(samples))
	copy(ranked, samples)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ScoreTotal > ranked[j].ScoreTotal })

	hits := 0
	for _, s := range ranked[:e.topK] {
		if math.Abs(*s.AbnormalReturn1D) > e.hitThresholdPct {
			hits++
		}
	}
	return types.Float64(stats.Round(float64(hits)/float64(e.topK), 4))
}

// deciles splits the sample into ten groups by ascending score, the
// remainder folded into the highest-score group, and averages each
// group's abnormal return.
func (e *Engine) deciles(samples []types.BacktestSample) []Decile {
	if len(samples) < 10 {
		return nil
	}
	ranked := make([]types.BacktestSample, len(samples))
	copy(ranked, samples)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].ScoreTotal < ranked[j].ScoreTotal })

	size := len(ranked) / 10
	out := make([]Decile, 0, 10)
	for i := 0; i < 10; i++ {
		lo := i * size
		hi := lo + size
		if i == 9 {
			hi = len(ranked)
		}
		group := ranked[lo:hi]
		ars := make([]float64, 0, len(group))
		scores := make([]float64, 0, len(group))
		for _, s := range group {
			ars = append(ars, *s.AbnormalReturn1D)
			scores = append(scores, s.ScoreTotal)
		}
		out = append(out, Decile{
			Index:             i + 1,
			SampleCount:       len(group),
			MinScore:          stats.Min(scores),
			MaxScore:          stats.Max(scores),
			AvgAbnormalReturn: stats.Round(stats.Mean(ars), 4),
		})
	}
	return out
}

func (e *Engine) correlations(samples []types.BacktestSample) []LayerCorrelation {
	ars := make([]float64, len(samples))
	for i, s := range samples {
		ars[i] = *s.AbnormalReturn1D
	}

	layers := []struct {
		name    string
		extract func(types.BacktestSample) float64
	}{
		{"total", func(s types.BacktestSample) float64 { return s.ScoreTotal }},
		{"keyword", func(s types.BacktestSample) float64 { return s.ScoreKeyword }},
		{"cap_multiplier", func(s types.BacktestSample) float64 { return s.ScoreCapMult }},
		{"surprise", func(s types.BacktestSample) float64 { return s.ScoreSurprise }},
		{"market_reaction", func(s types.BacktestSample) float64 { return s.ScoreMarketReaction }},
	}

	var out []LayerCorrelation
	for _, l := range layers {
		xs := make([]float64, len(samples))
		for i, s := range samples {
			xs[i] = l.extract(s)
		}
		r := stats.Pearson(xs, ars)
		if math.IsNaN(r) {
			continue
		}
		out = append(out, LayerCorrelation{
			Layer:          l.name,
			R:              stats.Round(r, 4),
			Interpretation: InterpretCorrelation(r),
			SampleCount:    len(samples),
		})
	}
	return out
}

// InterpretCorrelation buckets |r| into plain-language strength labels.
func InterpretCorrelation(r float64) string {
	abs := math.Abs(r)
	switch {
	case abs < 0.2:
		return "negligible"
	case abs < 0.4:
		return "weak"
	case abs < 0.7:
		return "moderate"
	default:
		return "strong"
	}
}
