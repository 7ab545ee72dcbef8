package db

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"news-impact-engine/internal/types"
)

// Store is the Postgres-backed implementation of the persistence
// contracts: event windows, reaction scores, mention counts, the
// confounder catalog, the keyword catalog, the alert log, and backtest
// buckets.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// EnqueueArticle fans an article out into one not_started event window
// row per ticker. Existing rows are left alone, so re-enqueueing is
// harmless.
func (s *Store) EnqueueArticle(ctx context.Context, a *types.Article) (int64, error) {
	tickers := splitCSV(a.Tickers)
	if len(tickers) == 0 {
		return 0, nil
	}
	rows := make([]types.EventWindow, 0, len(tickers))
	for _, t := range tickers {
		rows = append(rows, types.EventWindow{
			ArticleID:        a.ID,
			Ticker:           t,
			ProcessingStatus: types.StatusNotStarted,
		})
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows)
	return res.RowsAffected, res.Error
}

// PendingPairs lists (article, ticker) pairs that still need an event
// study, oldest publication first.
func (s *Store) PendingPairs(ctx context.Context, limit int) ([]types.PendingPair, error) {
	var pairs []types.PendingPair
	err := s.db.WithContext(ctx).
		Table("event_windows").
		Select("event_windows.article_id, event_windows.ticker, rss_items.company_names AS company_name, rss_items.published_at").
		Joins("JOIN rss_items ON rss_items.id = event_windows.article_id").
		Where("event_windows.processing_status <> ?", types.StatusComplete).
		Where("event_windows.retry_count < ?", types.MaxRetries).
		Order("rss_items.published_at ASC").
		Limit(limit).
		Scan(&pairs).Error
	if err != nil {
		return nil, err
	}
	// a multi-company article stores names comma separated; the first
	// entry belongs to the primary ticker
	for i := range pairs {
		if names := splitCSV(pairs[i].CompanyName); len(names) > 0 {
			pairs[i].CompanyName = names[0]
		}
	}
	return pairs, nil
}

// UnscoredArticles lists recent articles that have no alert-log rows
// yet, oldest first.
func (s *Store) UnscoredArticles(ctx context.Context, since time.Time, limit int) ([]types.Article, error) {
	var arts []types.Article
	err := s.db.WithContext(ctx).
		Table("rss_items").
		Select("rss_items.*").
		Joins("LEFT JOIN alert_log ON alert_log.article_id = rss_items.id").
		Where("alert_log.article_id IS NULL").
		Where("rss_items.published_at >= ?", since).
		Order("rss_items.published_at ASC").
		Limit(limit).
		Scan(&arts).Error
	return arts, err
}

// PendingReactionPairs lists completed event windows of alert-logged
// articles that have no reaction score yet.
func (s *Store) PendingReactionPairs(ctx context.Context, limit int) ([]types.PendingPair, error) {
	var pairs []types.PendingPair
	err := s.db.WithContext(ctx).
		Table("event_windows").
		Select("DISTINCT event_windows.article_id, event_windows.ticker, rss_items.published_at").
		Joins("JOIN rss_items ON rss_items.id = event_windows.article_id").
		Joins("JOIN alert_log ON alert_log.article_id = event_windows.article_id").
		Joins(`LEFT JOIN market_reaction_scores
			ON market_reaction_scores.article_id = event_windows.article_id
			AND market_reaction_scores.ticker = event_windows.ticker`).
		Where("event_windows.processing_status = ?", types.StatusComplete).
		Where("market_reaction_scores.article_id IS NULL").
		Order("rss_items.published_at ASC").
		Limit(limit).
		Scan(&pairs).Error
	return pairs, err
}

func (s *Store) GetEventWindow(ctx context.Context, articleID int64, ticker string) (*types.EventWindow, error) {
	var w types.EventWindow
	err := s.db.WithContext(ctx).
		Where("article_id = ? AND ticker = ?", articleID, ticker).
		First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// UpsertEventWindow writes the full row in one statement keyed by the
// composite primary key.
func (s *Store) UpsertEventWindow(ctx context.Context, w *types.EventWindow) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}, {Name: "ticker"}},
			UpdateAll: true,
		}).
		Create(w).Error
}

func (s *Store) ResetFailed(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).
		Model(&types.EventWindow{}).
		Where("processing_status = ?", types.StatusFailed).
		Updates(map[string]any{
			"processing_status": types.StatusNotStarted,
			"retry_count":       0,
			"failure_reason":    "",
		})
	return res.RowsAffected, res.Error
}

// CompletedSamples joins scored articles with their realized event
// windows for backtesting, limited to the requested publication window
// and score floor.
func (s *Store) CompletedSamples(ctx context.Context, start, end time.Time, minScore float64) ([]types.BacktestSample, error) {
	var samples []types.BacktestSample
	err := s.db.WithContext(ctx).
		Table("alert_log").
		Select(`alert_log.article_id,
			event_windows.ticker,
			alert_log.score_total,
			alert_log.score_keyword,
			alert_log.score_cap_mult,
			alert_log.score_surprise,
			COALESCE(market_reaction_scores.total_reaction_score, 0) AS score_market_reaction,
			event_windows.abnormal_return_1d,
			rss_items.published_at`).
		Joins("JOIN rss_items ON rss_items.id = alert_log.article_id").
		Joins("JOIN event_windows ON event_windows.article_id = alert_log.article_id").
		Joins(`LEFT JOIN market_reaction_scores
			ON market_reaction_scores.article_id = event_windows.article_id
			AND market_reaction_scores.ticker = event_windows.ticker`).
		Where("event_windows.processing_status = ?", types.StatusComplete).
		Where("rss_items.published_at BETWEEN ? AND ?", start, end).
		Where("alert_log.score_total >= ?", minScore).
		Order("rss_items.published_at DESC").
		Scan(&samples).Error
	return samples, err
}

func (s *Store) GetReactionScore(ctx context.Context, articleID int64, ticker string) (*types.ReactionScore, error) {
	var r types.ReactionScore
	err := s.db.WithContext(ctx).
		Where("article_id = ? AND ticker = ?", articleID, ticker).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpsertReactionScore(ctx context.Context, r *types.ReactionScore) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}, {Name: "ticker"}},
			UpdateAll: true,
		}).
		Create(r).Error
}

// RecentMentions counts articles naming the ticker in the 24h before ref.
func (s *Store) RecentMentions(ctx context.Context, ticker string, ref time.Time) (int, error) {
	return s.countMentions(ctx, ticker, ref.Add(-24*time.Hour), ref)
}

// BaselineMentions counts articles in the 7 days preceding the 24h window.
func (s *Store) BaselineMentions(ctx context.Context, ticker string, ref time.Time) (int, error) {
	recentStart := ref.Add(-24 * time.Hour)
	return s.countMentions(ctx, ticker, recentStart.AddDate(0, 0, -7), recentStart)
}

// SameDayArticles counts distinct articles naming the ticker on ref's
// calendar day.
func (s *Store) SameDayArticles(ctx context.Context, ticker string, ref time.Time) (int, error) {
	day := ref.Truncate(24 * time.Hour)
	return s.countMentions(ctx, ticker, day, day.AddDate(0, 0, 1))
}

func (s *Store) countMentions(ctx context.Context, ticker string, from, to time.Time) (int, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&types.Article{}).
		Where("published_at >= ? AND published_at < ?", from, to).
		Where("(',' || stock_tickers || ',') LIKE ?", "%,"+ticker+",%").
		Count(&n).Error
	return int(n), err
}

// EventsNear returns catalog events within windowDays of date that are
// market-wide or specific to the ticker.
func (s *Store) EventsNear(ctx context.Context, ticker string, date time.Time, windowDays int) ([]types.ConfounderEvent, error) {
	var events []types.ConfounderEvent
	from := date.AddDate(0, 0, -windowDays)
	to := date.AddDate(0, 0, windowDays)
	err := s.db.WithContext(ctx).
		Where("event_date BETWEEN ? AND ?", from, to).
		Where("ticker IS NULL OR ticker = ?", ticker).
		Order("event_date ASC").
		Find(&events).Error
	return events, err
}

func (s *Store) AddEvent(ctx context.Context, ev *types.ConfounderEvent) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(ev).Error
}

func (s *Store) ImportEarningsCalendar(ctx context.Context, events []types.ConfounderEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}
	for i := range events {
		events[i].EventType = types.ConfounderEarnings
	}
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&events)
	return res.RowsAffected, res.Error
}

func (s *Store) ActiveKeywords(ctx context.Context) ([]types.Keyword, error) {
	var kws []types.Keyword
	err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("keyword ASC").
		Find(&kws).Error
	return kws, err
}

// LogAlert inserts the audit row once per (article, keyword); replays
// report inserted=false and change nothing.
func (s *Store) LogAlert(ctx context.Context, row *types.AlertLog) (bool, error) {
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveBuckets appends a run's summaries; an existing (run_date, bucket)
// row from an earlier run that day is left untouched.
func (s *Store) SaveBuckets(ctx context.Context, rows []types.BacktestBucket) error {
	if len(rows) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (s *Store) Buckets(ctx context.Context, runDate time.Time) ([]types.BacktestBucket, error) {
	var rows []types.BacktestBucket
	err := s.db.WithContext(ctx).
		Where("run_date = ?", runDate).
		Order("score_bucket ASC").
		Find(&rows).Error
	return rows, err
}

// Migrate creates or updates the engine's tables.
func (s *Store) Migrate() error {
	return s.db.AutoMigrate(
		&types.EventWindow{},
		&types.ReactionScore{},
		&types.ConfounderEvent{},
		&types.SectorMapping{},
		&types.BenchmarkReturn{},
		&types.Keyword{},
		&types.AlertLog{},
		&types.BacktestBucket{},
	)
}

func splitCSV(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
