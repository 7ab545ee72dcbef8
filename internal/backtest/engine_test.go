package backtest

import (
	"context"
	"testing"
	"time"

	"news-impact-engine/internal/types"
)

type memBacktestStore struct {
	saved []types.BacktestBucket
}

func (s *memBacktestStore) SaveBuckets(ctx context.Context, rows []types.BacktestBucket) error {
	s.saved = append(s.saved, rows...)
	return nil
}

func (s *memBacktestStore) Buckets(ctx context.Context, runDate time.Time) ([]types.BacktestBucket, error) {
	return s.saved, nil
}

type sampleWindows struct {
	samples  []types.BacktestSample
	gotStart time.Time
	gotEnd   time.Time
}

func (s *sampleWindows) PendingPairs(ctx context.Context, limit int) ([]types.PendingPair, error) {
	return nil, nil
}
func (s *sampleWindows) GetEventWindow(ctx context.Context, id int64, t string) (*types.EventWindow, error) {
	return nil, nil
}
func (s *sampleWindows) UpsertEventWindow(ctx context.Context, w *types.EventWindow) error { return nil }
func (s *sampleWindows) ResetFailed(ctx context.Context) (int64, error)                    { return 0, nil }
func (s *sampleWindows) CompletedSamples(ctx context.Context, start, end time.Time, minScore float64) ([]types.BacktestSample, error) {
	s.gotStart, s.gotEnd = start, end
	var out []types.BacktestSample
	for _, smp := range s.samples {
		if smp.ScoreTotal >= minScore {
			out = append(out, smp)
		}
	}
	return out, nil
}

func sample(score, ar float64) types.BacktestSample {
	return types.BacktestSample{ScoreTotal: score, AbnormalReturn1D: types.Float64(ar)}
}

func TestBucketLabel(t *testing.T) {
	cases := []struct {
		score float64
		want  string
	}{
		{4.9, ""},
		{5, "5-10"},
		{9.99, "5-10"},
		{10, "10-15"},
		{19.9, "15-20"},
		{25, "20-30"},
		{30, "30+"},
		{99, "30+"},
	}
	for _, c := range cases {
		if got := bucketLabel(c.score); got != c.want {
			t.Errorf("score %v: got %q want %q", c.score, got, c.want)
		}
	}
}

func TestEvaluateBucketsAndHitRate(t *testing.T) {
	e := NewEngine(nil, nil, 2.0, 10, 0)
	samples := []types.BacktestSample{
		sample(6, 3.0),   // hit
		sample(7, -4.0),  // hit (magnitude)
		sample(8, 0.5),   // miss
		sample(12, 2.5),  // hit, next bucket
		{ScoreTotal: 9, AbnormalReturn1D: nil}, // dropped
	}
	r := e.Evaluate(samples)
	if r.SampleCount != 4 {
		t.Fatalf("samples=%d", r.SampleCount)
	}
	if len(r.Buckets) != 2 {
		t.Fatalf("buckets=%d", len(r.Buckets))
	}
	low := r.Buckets[0]
	if low.Bucket != "5-10" || low.SampleCount != 3 {
		t.Fatalf("bucket %+v", low)
	}
	if *low.HitRate != 0.6667 {
		t.Fatalf("hit_rate=%v", *low.HitRate)
	}
	if *low.MinAbnormalReturn != -4.0 || *low.MaxAbnormalReturn != 3.0 {
		t.Fatalf("min=%v max=%v", *low.MinAbnormalReturn, *low.MaxAbnormalReturn)
	}
	if low.RunID != r.RunID {
		t.Fatal("bucket rows must carry the run id")
	}
}

func TestPrecisionAtK(t *testing.T) {
	e := NewEngine(nil, nil, 2.0, 10, 0)

	// 10 high scorers all hit, 10 low scorers all miss
	var samples []types.BacktestSample
	for i := 0; i < 10; i++ {
		samples = append(samples, sample(30+float64(i), 5.0))
	}
	for i := 0; i < 10; i++ {
		samples = append(samples, sample(6, 0.1))
	}
	r := e.Evaluate(samples)
	if r.PrecisionAtK == nil || *r.PrecisionAtK != 1.0 {
		t.Fatalf("precision=%v want 1.0", r.PrecisionAtK)
	}
	// persisted bucket rows carry the run-level precision
	for _, b := range r.Buckets {
		if b.PrecisionAtK == nil || *b.PrecisionAtK != 1.0 {
			t.Fatalf("bucket %s precision=%v want 1.0", b.Bucket, b.PrecisionAtK)
		}
	}

	// only 3 of the top 10 hit
	samples = samples[:0]
	for i := 0; i < 3; i++ {
		samples = append(samples, sample(40, 5.0))
	}
	for i := 0; i < 7; i++ {
		samples = append(samples, sample(35, 0.1))
	}
	for i := 0; i < 5; i++ {
		samples = append(samples, sample(6, 5.0))
	}
	r = e.Evaluate(samples)
	if r.PrecisionAtK == nil || *r.PrecisionAtK != 0.3 {
		t.Fatalf("precision=%v want 0.3", r.PrecisionAtK)
	}

	// too few samples: no verdict
	r = e.Evaluate([]types.BacktestSample{sample(6, 1)})
	if r.PrecisionAtK != nil {
		t.Fatalf("precision=%v want nil", r.PrecisionAtK)
	}
}

func TestDecilesRemainderInHighest(t *testing.T) {
	e := NewEngine(nil, nil, 2.0, 10, 0)
	var samples []types.BacktestSample
	for i := 0; i < 23; i++ {
		samples = append(samples, sample(float64(i), float64(i)))
	}
	r := e.Evaluate(samples)
	if len(r.Deciles) != 10 {
		t.Fatalf("deciles=%d", len(r.Deciles))
	}
	total := 0
	for i, d := range r.Deciles {
		if i < 9 && d.SampleCount != 2 {
			t.Fatalf("decile %d count=%d", d.Index, d.SampleCount)
		}
		total += d.SampleCount
	}
	if total != 23 {
		t.Fatalf("total=%d", total)
	}
	// the remainder folds into decile 10, which holds the top scores
	top := r.Deciles[9]
	if top.SampleCount != 5 {
		t.Fatalf("top decile count=%d want remainder 5", top.SampleCount)
	}
	if top.MinScore != 18 || top.MaxScore != 22 {
		t.Fatalf("top decile scores [%v .. %v] want [18 .. 22]", top.MinScore, top.MaxScore)
	}
	if r.Deciles[0].MinScore != 0 || r.Deciles[0].MaxScore != 1 {
		t.Fatalf("bottom decile scores [%v .. %v] want [0 .. 1]", r.Deciles[0].MinScore, r.Deciles[0].MaxScore)
	}
	// ascending order: decile 10's returns beat decile 1's here
	if top.AvgAbnormalReturn <= r.Deciles[0].AvgAbnormalReturn {
		t.Fatal("deciles not score ordered")
	}
}

func TestCorrelationsMonotoneLayer(t *testing.T) {
	e := NewEngine(nil, nil, 2.0, 10, 0)
	var samples []types.BacktestSample
	for i := 0; i < 20; i++ {
		s := sample(float64(i), float64(i)*0.5)
		s.ScoreKeyword = float64(i)
		samples = append(samples, s)
	}
	r := e.Evaluate(samples)
	var keyword *LayerCorrelation
	for i := range r.Correlations {
		if r.Correlations[i].Layer == "keyword" {
			keyword = &r.Correlations[i]
		}
	}
	if keyword == nil {
		t.Fatal("keyword layer missing")
	}
	if keyword.R != 1.0 || keyword.Interpretation != "strong" {
		t.Fatalf("keyword %+v", keyword)
	}
	// constant layers are skipped rather than reported as NaN
	for _, c := range r.Correlations {
		if c.Layer == "cap_multiplier" {
			t.Fatal("constant layer should be dropped")
		}
	}
}

func TestInterpretCorrelation(t *testing.T) {
	cases := map[float64]string{
		0.1:   "negligible",
		-0.25: "weak",
		0.5:   "moderate",
		-0.9:  "strong",
		0.7:   "strong",
	}
	for r, want := range cases {
		if got := InterpretCorrelation(r); got != want {
			t.Errorf("r=%v got %q want %q", r, got, want)
		}
	}
}

func TestRunPersistsBuckets(t *testing.T) {
	store := &memBacktestStore{}
	windows := &sampleWindows{samples: []types.BacktestSample{
		sample(6, 3.0), sample(8, 1.0), sample(12, -3.0),
	}}
	e := NewEngine(windows, store, 2.0, 10, 5.0)
	end := time.Now()
	r, err := e.Run(context.Background(), end.AddDate(0, -1, 0), end)
	if err != nil {
		t.Fatal(err)
	}
	if len(store.saved) != len(r.Buckets) || len(store.saved) == 0 {
		t.Fatalf("saved=%d buckets=%d", len(store.saved), len(r.Buckets))
	}
}

func TestRunAppliesScoreFloorAndWindow(t *testing.T) {
	windows := &sampleWindows{samples: []types.BacktestSample{
		sample(3, 5.0), sample(12, -3.0),
	}}
	e := NewEngine(windows, &memBacktestStore{}, 2.0, 10, 5.0)
	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	r, err := e.Run(context.Background(), start, end)
	if err != nil {
		t.Fatal(err)
	}
	if r.SampleCount != 1 {
		t.Fatalf("samples=%d, sub-floor score should be excluded", r.SampleCount)
	}
	if !windows.gotStart.Equal(start) || !windows.gotEnd.Equal(end) {
		t.Fatalf("window [%v .. %v] not forwarded", windows.gotStart, windows.gotEnd)
	}
}
