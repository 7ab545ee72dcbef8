package eventstudy

import (
	"context"
	"fmt"
	"time"

	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/marketdata"
	"news-impact-engine/internal/types"
)

// Orchestrator drives event window computation per (article, ticker)
// pair: fetch prices, compute metrics, resolve the benchmark, and
// persist the whole row in one upsert. It is the only component that
// touches retry bookkeeping.
type Orchestrator struct {
	prices     interfaces.PriceSource
	benchmarks interfaces.BenchmarkSource
	sectors    interfaces.SectorMapper
	store      interfaces.EventWindowStore

	daysBefore       int
	daysAfter        int
	maxRetries       int
	defaultBenchmark string
}

// NewOrchestrator wires an orchestrator. daysBefore must cover the
// 20-day baseline plus the 5-day pre window; daysAfter the 10-day
// horizon plus settlement lag.
func NewOrchestrator(
	prices interfaces.PriceSource,
	benchmarks interfaces.BenchmarkSource,
	sectors interfaces.SectorMapper,
	store interfaces.EventWindowStore,
	daysBefore, daysAfter, maxRetries int,
	defaultBenchmark string,
) *Orchestrator {
	return &Orchestrator{
		prices:           prices,
		benchmarks:       benchmarks,
		sectors:          sectors,
		store:            store,
		daysBefore:       daysBefore,
		daysAfter:        daysAfter,
		maxRetries:       maxRetries,
		defaultBenchmark: defaultBenchmark,
	}
}

// BatchResult summarizes one ProcessPending invocation.
type BatchResult struct {
	Processed int
	Completed int
	Failed    int
	Skipped   int
}

// ProcessPending pulls up to limit pending pairs and processes each in
// isolation; one pair's failure never aborts the batch.
func (o *Orchestrator) ProcessPending(ctx context.Context, limit int) (BatchResult, error) {
	timer := logger.StartOperation(ctx, "event_study.process_pending", "limit", limit)
	ctx = timer.GetContext()

	var res BatchResult
	pairs, err := o.store.PendingPairs(ctx, limit)
	if err != nil {
		timer.EndWithError(err)
		return res, fmt.Errorf("listing pending pairs: %w", err)
	}

	for _, p := range pairs {
		if ctx.Err() != nil {
			timer.EndWithError(ctx.Err())
			return res, ctx.Err()
		}
		res.Processed++
		status, err := o.ProcessPair(ctx, p)
		switch {
		case err != nil && status == types.StatusFailed:
			res.Failed++
		case err != nil:
			res.Skipped++
		default:
			res.Completed++
		}
	}

	timer.End("processed", res.Processed, "completed", res.Completed, "failed", res.Failed)
	logger.Info(ctx, "Event study batch finished",
		"processed", res.Processed, "completed", res.Completed,
		"failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

// ProcessPair computes and persists one event window. On failure the
// existing row (if any) keeps its old metrics; only status, retry count,
// and failure reason change. Nothing partial is ever written.
func (o *Orchestrator) ProcessPair(ctx context.Context, p types.PendingPair) (types.ProcessingStatus, error) {
	prev, err := o.store.GetEventWindow(ctx, p.ArticleID, p.Ticker)
	if err != nil {
		return "", fmt.Errorf("loading event window %d/%s: %w", p.ArticleID, p.Ticker, err)
	}
	if prev != nil && prev.ProcessingStatus == types.StatusComplete {
		return types.StatusComplete, nil
	}
	retries := 0
	if prev != nil {
		retries = prev.RetryCount
	}
	if retries >= o.maxRetries {
		logger.Debug(ctx, "Retry budget exhausted, skipping pair",
			"article_id", p.ArticleID, "ticker", p.Ticker, "retries", retries)
		return "", fmt.Errorf("retry budget exhausted for %d/%s", p.ArticleID, p.Ticker)
	}

	w, err := o.compute(ctx, p)
	if err != nil {
		if marketdata.IsTransient(err) {
			// Leave the row untouched; the next batch retries for free.
			logger.Warn(ctx, "Transient failure, will retry next batch",
				"article_id", p.ArticleID, "ticker", p.Ticker, "error", err)
			return "", err
		}
		failed := &types.EventWindow{
			ArticleID:        p.ArticleID,
			Ticker:           p.Ticker,
			ProcessingStatus: types.StatusFailed,
			RetryCount:       retries + 1,
			FailureReason:    err.Error(),
			LastProcessedAt:  time.Now().UTC(),
		}
		if upErr := o.store.UpsertEventWindow(ctx, failed); upErr != nil {
			return "", fmt.Errorf("recording failure for %d/%s: %w", p.ArticleID, p.Ticker, upErr)
		}
		logger.EventStudy(ctx, p.Ticker, p.ArticleID, string(types.StatusFailed), "error", err.Error())
		return types.StatusFailed, err
	}

	w.RetryCount = retries
	if err := o.store.UpsertEventWindow(ctx, w); err != nil {
		return "", fmt.Errorf("persisting event window %d/%s: %w", p.ArticleID, p.Ticker, err)
	}
	logger.EventStudy(ctx, p.Ticker, p.ArticleID, string(types.StatusComplete))
	return types.StatusComplete, nil
}

// compute builds a complete EventWindow row without persisting it.
func (o *Orchestrator) compute(ctx context.Context, p types.PendingPair) (*types.EventWindow, error) {
	start := p.PublishedAt.AddDate(0, 0, -o.daysBefore)
	end := p.PublishedAt.AddDate(0, 0, o.daysAfter)

	bars, err := o.prices.GetPrices(ctx, p.Ticker, start, end)
	if err != nil {
		return nil, fmt.Errorf("fetching prices for %s: %w", p.Ticker, err)
	}
	if len(bars) == 0 {
		return nil, ErrNoPriceData
	}

	m, err := Compute(bars, p.PublishedAt)
	if err != nil {
		return nil, err
	}

	benchmark := ResolveBenchmark(ctx, o.sectors, p.Ticker, p.CompanyName, o.defaultBenchmark)
	var bench *types.HorizonReturns
	if o.benchmarks != nil {
		bench, err = o.benchmarks.GetBenchmarkReturns(ctx, benchmark, p.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("fetching benchmark %s: %w", benchmark, err)
		}
	}
	ar1, ar3, ar5, ar10 := AbnormalReturns(m, bench)

	return &types.EventWindow{
		ArticleID: p.ArticleID,
		Ticker:    p.Ticker,

		ReturnPre1D: m.ReturnPre1D,
		ReturnPre3D: m.ReturnPre3D,
		ReturnPre5D: m.ReturnPre5D,

		Return1D:  m.Return1D,
		Return3D:  m.Return3D,
		Return5D:  m.Return5D,
		Return10D: m.Return10D,

		AbnormalReturn1D:  ar1,
		AbnormalReturn3D:  ar3,
		AbnormalReturn5D:  ar5,
		AbnormalReturn10D: ar10,

		VolumeBaseline20D: m.VolumeBaseline20D,
		Volume1D:          m.Volume1D,
		VolumeRatio1D:     m.VolumeRatio1D,
		VolumeZScore1D:    m.VolumeZScore1D,

		VolatilityBaseline20D: m.VolatilityBaseline20D,
		IntradayRange1D:       m.IntradayRange1D,
		GapMagnitude:          m.GapMagnitude,

		ProcessingStatus: types.StatusComplete,
		LastProcessedAt:  time.Now().UTC(),
	}, nil
}

// ResetFailed clears failed pairs back to not_started so a later batch
// picks them up fresh.
func (o *Orchestrator) ResetFailed(ctx context.Context) (int64, error) {
	n, err := o.store.ResetFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("resetting failed pairs: %w", err)
	}
	logger.Info(ctx, "Reset failed event windows", "count", n)
	return n, nil
}
