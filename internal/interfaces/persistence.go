package interfaces

import (
	"context"
	"time"

	"news-impact-engine/internal/types"
)

// EventWindowStore persists event study results and drives the
// per-pair processing lifecycle.
type EventWindowStore interface {
	// PendingPairs returns (article, ticker) pairs that are not yet
	// complete and have retry budget left, oldest first.
	PendingPairs(ctx context.Context, limit int) ([]types.PendingPair, error)
	// GetEventWindow returns the stored row for a pair, or nil if none.
	GetEventWindow(ctx context.Context, articleID int64, ticker string) (*types.EventWindow, error)
	// UpsertEventWindow writes the complete row in a single statement.
	UpsertEventWindow(ctx context.Context, w *types.EventWindow) error
	// ResetFailed moves failed pairs back to not_started with zeroed
	// retry counts and returns how many rows changed.
	ResetFailed(ctx context.Context) (int64, error)
	// CompletedSamples returns scored pairs published within [start, end]
	// whose composite score is at least minScore, joined with their
	// realized abnormal returns for backtesting, newest first.
	CompletedSamples(ctx context.Context, start, end time.Time, minScore float64) ([]types.BacktestSample, error)
}

// ReactionStore persists market reaction scores.
type ReactionStore interface {
	GetReactionScore(ctx context.Context, articleID int64, ticker string) (*types.ReactionScore, error)
	UpsertReactionScore(ctx context.Context, s *types.ReactionScore) error
}

// MentionCounter counts ticker mentions in ingested articles; feeds the
// trend component of the reaction score.
type MentionCounter interface {
	// RecentMentions counts articles naming the ticker in the 24h before ref.
	RecentMentions(ctx context.Context, ticker string, ref time.Time) (int, error)
	// BaselineMentions counts articles naming the ticker in the 7 days
	// before the recent window.
	BaselineMentions(ctx context.Context, ticker string, ref time.Time) (int, error)
	// SameDayArticles counts distinct articles naming the ticker on the
	// calendar day of ref; feeds the clustering confounder.
	SameDayArticles(ctx context.Context, ticker string, ref time.Time) (int, error)
}

// ConfounderCatalog serves and maintains the curated competing-event calendar.
type ConfounderCatalog interface {
	// EventsNear returns catalog events within windowDays of date that are
	// either market-wide or specific to ticker.
	EventsNear(ctx context.Context, ticker string, date time.Time, windowDays int) ([]types.ConfounderEvent, error)
	// AddEvent inserts a catalog row idempotently.
	AddEvent(ctx context.Context, ev *types.ConfounderEvent) error
	// ImportEarningsCalendar bulk-inserts earnings dates, skipping
	// duplicates, and returns how many rows were added.
	ImportEarningsCalendar(ctx context.Context, events []types.ConfounderEvent) (int64, error)
}

// KeywordCatalog serves the active keyword list. Catalog maintenance
// (add, rescore, deactivate) belongs to an external collaborator.
type KeywordCatalog interface {
	ActiveKeywords(ctx context.Context) ([]types.Keyword, error)
}

// AlertLogStore records score audit rows idempotently per (article, keyword).
type AlertLogStore interface {
	// LogAlert inserts the row if absent; inserted is false on conflict.
	LogAlert(ctx context.Context, row *types.AlertLog) (inserted bool, err error)
}

// BacktestStore appends calibration summaries; rows are never rewritten.
type BacktestStore interface {
	SaveBuckets(ctx context.Context, rows []types.BacktestBucket) error
	Buckets(ctx context.Context, runDate time.Time) ([]types.BacktestBucket, error)
}
