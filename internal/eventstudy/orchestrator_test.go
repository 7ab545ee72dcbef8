package eventstudy

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"news-impact-engine/internal/marketdata"
	"news-impact-engine/internal/types"
)

type memStore struct {
	rows    map[string]*types.EventWindow
	pending []types.PendingPair
	upserts int
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]*types.EventWindow{}}
}

func key(id int64, t string) string { return fmt.Sprintf("%d/%s", id, t) }

func (s *memStore) PendingPairs(ctx context.Context, limit int) ([]types.PendingPair, error) {
	if limit < len(s.pending) {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s *memStore) GetEventWindow(ctx context.Context, id int64, ticker string) (*types.EventWindow, error) {
	w, ok := s.rows[key(id, ticker)]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (s *memStore) UpsertEventWindow(ctx context.Context, w *types.EventWindow) error {
	s.upserts++
	cp := *w
	s.rows[key(w.ArticleID, w.Ticker)] = &cp
	return nil
}

func (s *memStore) ResetFailed(ctx context.Context) (int64, error) {
	var n int64
	for _, w := range s.rows {
		if w.ProcessingStatus == types.StatusFailed {
			w.ProcessingStatus = types.StatusNotStarted
			w.RetryCount = 0
			w.FailureReason = ""
			n++
		}
	}
	return n, nil
}

func (s *memStore) CompletedSamples(ctx context.Context, start, end time.Time, minScore float64) ([]types.BacktestSample, error) {
	return nil, nil
}

type fixedBench struct{ r *types.HorizonReturns }

func (f fixedBench) GetBenchmarkReturns(ctx context.Context, benchmark string, eventDate time.Time) (*types.HorizonReturns, error) {
	return f.r, nil
}

type failingPrices struct{ err error }

func (f failingPrices) GetPrices(ctx context.Context, ticker string, start, end time.Time) ([]types.PriceBar, error) {
	return nil, f.err
}

func testPair() types.PendingPair {
	return types.PendingPair{
		ArticleID:   42,
		Ticker:      "ACME",
		PublishedAt: time.Date(2026, 4, 15, 13, 0, 0, 0, time.UTC),
	}
}

func TestProcessPairCompletes(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(
		marketdata.NewMockPriceSource(),
		fixedBench{r: &types.HorizonReturns{R1D: types.Float64(0.1)}},
		nil, store, 30, 15, 3, "SPY")

	status, err := o.ProcessPair(context.Background(), testPair())
	if err != nil {
		t.Fatal(err)
	}
	if status != types.StatusComplete {
		t.Fatalf("status=%s", status)
	}
	w, _ := store.GetEventWindow(context.Background(), 42, "ACME")
	if w == nil || w.ProcessingStatus != types.StatusComplete {
		t.Fatalf("row %+v", w)
	}
	if w.Return1D == nil || w.AbnormalReturn1D == nil {
		t.Fatal("expected 1d return and abnormal return")
	}
	// benchmark only has 1d: other abnormal horizons stay nil
	if w.AbnormalReturn3D != nil {
		t.Fatal("abnormal 3d should be nil without benchmark data")
	}
	if store.upserts != 1 {
		t.Fatalf("upserts=%d want exactly one", store.upserts)
	}
}

func TestProcessPairIdempotentOnComplete(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(marketdata.NewMockPriceSource(), nil, nil, store, 30, 15, 3, "SPY")

	p := testPair()
	if _, err := o.ProcessPair(context.Background(), p); err != nil {
		t.Fatal(err)
	}
	before := store.upserts
	status, err := o.ProcessPair(context.Background(), p)
	if err != nil || status != types.StatusComplete {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if store.upserts != before {
		t.Fatal("complete pair must not be rewritten")
	}
}

func TestProcessPairPermanentFailureCountsRetry(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(failingPrices{err: errors.New("bad symbol")}, nil, nil, store, 30, 15, 3, "SPY")

	p := testPair()
	for i := 1; i <= 3; i++ {
		status, err := o.ProcessPair(context.Background(), p)
		if err == nil || status != types.StatusFailed {
			t.Fatalf("attempt %d: status=%s err=%v", i, status, err)
		}
		w, _ := store.GetEventWindow(context.Background(), 42, "ACME")
		if w.RetryCount != i {
			t.Fatalf("attempt %d: retry_count=%d", i, w.RetryCount)
		}
		if w.FailureReason == "" {
			t.Fatal("failure reason should be recorded")
		}
	}

	// budget exhausted: skipped without another write
	before := store.upserts
	if _, err := o.ProcessPair(context.Background(), p); err == nil {
		t.Fatal("expected skip error")
	}
	if store.upserts != before {
		t.Fatal("exhausted pair must not be written")
	}
}

func TestProcessPairTransientFailureLeavesRowUntouched(t *testing.T) {
	store := newMemStore()
	o := NewOrchestrator(
		failingPrices{err: &marketdata.TransientError{Err: errors.New("rate limited")}},
		nil, nil, store, 30, 15, 3, "SPY")

	if _, err := o.ProcessPair(context.Background(), testPair()); err == nil {
		t.Fatal("expected error")
	}
	if store.upserts != 0 {
		t.Fatal("transient failure must not consume retry budget")
	}
}

func TestResetFailed(t *testing.T) {
	store := newMemStore()
	store.rows["a"] = &types.EventWindow{ProcessingStatus: types.StatusFailed, RetryCount: 3}
	store.rows["b"] = &types.EventWindow{ProcessingStatus: types.StatusComplete}

	o := NewOrchestrator(marketdata.NewMockPriceSource(), nil, nil, store, 30, 15, 3, "SPY")
	n, err := o.ResetFailed(context.Background())
	if err != nil || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}
	if store.rows["a"].RetryCount != 0 || store.rows["a"].ProcessingStatus != types.StatusNotStarted {
		t.Fatalf("row %+v", store.rows["a"])
	}
}

func TestProcessPendingIsolatesFailures(t *testing.T) {
	store := newMemStore()
	store.pending = []types.PendingPair{
		{ArticleID: 1, Ticker: "GOOD", PublishedAt: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)},
		{ArticleID: 2, Ticker: "", PublishedAt: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)},
		{ArticleID: 3, Ticker: "ALSO", PublishedAt: time.Date(2026, 4, 15, 0, 0, 0, 0, time.UTC)},
	}
	src := marketdata.NewMockPriceSource()
	src.Series[""] = nil // empty ticker yields no bars

	o := NewOrchestrator(src, nil, nil, store, 30, 15, 3, "SPY")
	res, err := o.ProcessPending(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if res.Completed != 2 || res.Failed != 1 {
		t.Fatalf("result %+v", res)
	}
}
