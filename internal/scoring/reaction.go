package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/trace"
	"news-impact-engine/internal/types"
)

const defaultBaselineMentionsPerDay = 0.5

// ReactionScorer confirms text-derived scores against observed market
// behaviour: next-day volume, overnight gap, and mention velocity.
// Results are cached read-through in redis with the database row as the
// source of truth.
type ReactionScorer struct {
	windows  interfaces.EventWindowStore
	mentions interfaces.MentionCounter
	store    interfaces.ReactionStore
	cache    *redis.Client
	ttl      time.Duration
}

// NewReactionScorer wires a scorer. cache may be nil to skip caching.
func NewReactionScorer(
	windows interfaces.EventWindowStore,
	mentions interfaces.MentionCounter,
	store interfaces.ReactionStore,
	cache *redis.Client,
	ttl time.Duration,
) *ReactionScorer {
	return &ReactionScorer{windows: windows, mentions: mentions, store: store, cache: cache, ttl: ttl}
}

func reactionKey(articleID int64, ticker string) string {
	return fmt.Sprintf("reaction:%d:%s", articleID, ticker)
}

// Score returns the reaction score for a pair, computing and persisting
// it on first request. Identical inputs always yield identical scores,
// so cached rows are served as-is.
func (s *ReactionScorer) Score(ctx context.Context, articleID int64, ticker string, publishedAt time.Time) (*types.ReactionScore, error) {
	ctx, span := trace.StartSpan(ctx, "score-market-reaction")
	defer span.End()

	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, reactionKey(articleID, ticker)).Bytes(); err == nil {
			var cached types.ReactionScore
			if err := json.Unmarshal(raw, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	if existing, err := s.store.GetReactionScore(ctx, articleID, ticker); err != nil {
		return nil, fmt.Errorf("loading reaction score %d/%s: %w", articleID, ticker, err)
	} else if existing != nil {
		s.fillCache(ctx, existing)
		return existing, nil
	}

	score, err := s.compute(ctx, articleID, ticker, publishedAt)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpsertReactionScore(ctx, score); err != nil {
		return nil, fmt.Errorf("persisting reaction score %d/%s: %w", articleID, ticker, err)
	}
	s.fillCache(ctx, score)
	logger.Info(ctx, "Market reaction scored",
		"article_id", articleID, "ticker", ticker,
		"volume_score", score.VolumeScore, "gap_score", score.GapScore,
		"trend_score", score.TrendScore, "total", score.TotalScore)
	return score, nil
}

func (s *ReactionScorer) fillCache(ctx context.Context, score *types.ReactionScore) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(score)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, reactionKey(score.ArticleID, score.Ticker), raw, s.ttl).Err(); err != nil {
		logger.Debug(ctx, "Reaction cache write failed", "error", err)
	}
}

func (s *ReactionScorer) compute(ctx context.Context, articleID int64, ticker string, publishedAt time.Time) (*types.ReactionScore, error) {
	w, err := s.windows.GetEventWindow(ctx, articleID, ticker)
	if err != nil {
		return nil, fmt.Errorf("loading event window %d/%s: %w", articleID, ticker, err)
	}

	score := &types.ReactionScore{
		ArticleID:  articleID,
		Ticker:     ticker,
		ComputedAt: time.Now().UTC(),
	}
	if w != nil {
		score.VolumeScore = VolumePoints(w.VolumeRatio1D)
		score.GapScore = GapPoints(w.GapMagnitude)
	}

	if s.mentions != nil {
		recent, err := s.mentions.RecentMentions(ctx, ticker, publishedAt)
		if err != nil {
			return nil, fmt.Errorf("counting recent mentions for %s: %w", ticker, err)
		}
		baseline, err := s.mentions.BaselineMentions(ctx, ticker, publishedAt)
		if err != nil {
			return nil, fmt.Errorf("counting baseline mentions for %s: %w", ticker, err)
		}
		score.TrendScore = TrendPoints(recent, baseline)
	}

	score.TotalScore = score.VolumeScore + score.GapScore + score.TrendScore
	return score, nil
}

// VolumePoints awards 0-2 points for next-day volume versus baseline.
func VolumePoints(ratio *float64) float64 {
	if ratio == nil {
		return 0
	}
	switch {
	case *ratio >= 3:
		return 2
	case *ratio >= 2:
		return 1
	default:
		return 0
	}
}

// GapPoints awards 0-2 points for the overnight gap magnitude.
func GapPoints(gap *float64) float64 {
	if gap == nil {
		return 0
	}
	abs := math.Abs(*gap)
	switch {
	case abs >= 5:
		return 2
	case abs >= 3:
		return 1
	default:
		return 0
	}
}

// TrendPoints awards 1 point when 24h mentions run at least 3x the
// 7-day baseline daily average. A ticker with no history is measured
// against half a mention per day rather than zero.
func TrendPoints(recent24h, baseline7d int) float64 {
	avg := float64(baseline7d) / 7
	if baseline7d == 0 {
		avg = defaultBaselineMentionsPerDay
	}
	if float64(recent24h) >= 3*avg {
		return 1
	}
	return 0
}
