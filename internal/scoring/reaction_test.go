package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"news-impact-engine/internal/types"
)

type stubWindows struct {
	w *types.EventWindow
}

func (s stubWindows) PendingPairs(ctx context.Context, limit int) ([]types.PendingPair, error) {
	return nil, nil
}
func (s stubWindows) GetEventWindow(ctx context.Context, id int64, ticker string) (*types.EventWindow, error) {
	return s.w, nil
}
func (s stubWindows) UpsertEventWindow(ctx context.Context, w *types.EventWindow) error { return nil }
func (s stubWindows) ResetFailed(ctx context.Context) (int64, error)                    { return 0, nil }
func (s stubWindows) CompletedSamples(ctx context.Context, start, end time.Time, minScore float64) ([]types.BacktestSample, error) {
	return nil, nil
}

type stubMentions struct {
	recent, baseline, sameDay int
}

func (s stubMentions) RecentMentions(ctx context.Context, ticker string, ref time.Time) (int, error) {
	return s.recent, nil
}
func (s stubMentions) BaselineMentions(ctx context.Context, ticker string, ref time.Time) (int, error) {
	return s.baseline, nil
}
func (s stubMentions) SameDayArticles(ctx context.Context, ticker string, ref time.Time) (int, error) {
	return s.sameDay, nil
}

type memReactions struct {
	rows    map[string]*types.ReactionScore
	upserts int
}

func newMemReactions() *memReactions {
	return &memReactions{rows: map[string]*types.ReactionScore{}}
}

func (s *memReactions) GetReactionScore(ctx context.Context, id int64, ticker string) (*types.ReactionScore, error) {
	return s.rows[ticker], nil
}

func (s *memReactions) UpsertReactionScore(ctx context.Context, r *types.ReactionScore) error {
	s.upserts++
	cp := *r
	s.rows[r.Ticker] = &cp
	return nil
}

func TestVolumeAndGapPoints(t *testing.T) {
	if got := VolumePoints(types.Float64(3.5)); got != 2 {
		t.Fatalf("ratio 3.5 got %v want 2", got)
	}
	if got := VolumePoints(types.Float64(2.2)); got != 1 {
		t.Fatalf("ratio 2.2 got %v want 1", got)
	}
	if got := VolumePoints(types.Float64(1.5)); got != 0 {
		t.Fatalf("ratio 1.5 got %v", got)
	}
	if got := VolumePoints(nil); got != 0 {
		t.Fatalf("nil ratio got %v", got)
	}

	if got := GapPoints(types.Float64(-6.1)); got != 2 {
		t.Fatalf("gap -6.1 got %v want 2", got)
	}
	if got := GapPoints(types.Float64(3.2)); got != 1 {
		t.Fatalf("gap 3.2 got %v want 1", got)
	}
	if got := GapPoints(types.Float64(1.0)); got != 0 {
		t.Fatalf("gap 1.0 got %v", got)
	}
}

func TestTrendPoints(t *testing.T) {
	// baseline 14 over 7d: avg 2/day, threshold 6
	if got := TrendPoints(6, 14); got != 1 {
		t.Fatalf("got %v want 1", got)
	}
	if got := TrendPoints(5, 14); got != 0 {
		t.Fatalf("got %v want 0", got)
	}
	// zero history: 0.5/day default, threshold 1.5
	if got := TrendPoints(2, 0); got != 1 {
		t.Fatalf("cold start got %v want 1", got)
	}
	if got := TrendPoints(1, 0); got != 0 {
		t.Fatalf("cold start got %v want 0", got)
	}
}

func TestReactionScoreComputesAndCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newMemReactions()

	windows := stubWindows{w: &types.EventWindow{
		ArticleID:     7,
		Ticker:        "ACME",
		VolumeRatio1D: types.Float64(3.5),
		GapMagnitude:  types.Float64(-5.5),
	}}
	s := NewReactionScorer(windows, stubMentions{recent: 6, baseline: 14}, store, cache, time.Minute)

	got, err := s.Score(context.Background(), 7, "ACME", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got.VolumeScore != 2 || got.GapScore != 2 || got.TrendScore != 1 {
		t.Fatalf("scores %+v", got)
	}
	if got.TotalScore != 5 {
		t.Fatalf("total=%v want 5", got.TotalScore)
	}
	if store.upserts != 1 {
		t.Fatalf("upserts=%d", store.upserts)
	}

	// second call served from cache, no extra write
	again, err := s.Score(context.Background(), 7, "ACME", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if again.TotalScore != 5 || store.upserts != 1 {
		t.Fatalf("total=%v upserts=%d", again.TotalScore, store.upserts)
	}
	if !mr.Exists("reaction:7:ACME") {
		t.Fatal("cache key missing")
	}
}

func TestReactionScoreDBRowBackfillsCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := newMemReactions()
	store.rows["ACME"] = &types.ReactionScore{ArticleID: 7, Ticker: "ACME", TotalScore: 3}

	s := NewReactionScorer(stubWindows{}, stubMentions{}, store, cache, time.Minute)
	got, err := s.Score(context.Background(), 7, "ACME", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if got.TotalScore != 3 {
		t.Fatalf("total=%v want stored 3", got.TotalScore)
	}
	if store.upserts != 0 {
		t.Fatal("existing row must not be rewritten")
	}
	if !mr.Exists("reaction:7:ACME") {
		t.Fatal("cache should be backfilled")
	}
}

func TestReactionScoreWithoutCache(t *testing.T) {
	store := newMemReactions()
	s := NewReactionScorer(stubWindows{}, stubMentions{recent: 9, baseline: 0}, store, nil, time.Minute)
	got, err := s.Score(context.Background(), 1, "ACME", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	// no event window: volume and gap contribute nothing
	if got.TotalScore != 1 {
		t.Fatalf("total=%v want trend-only 1", got.TotalScore)
	}
}
