package scoring

import (
	"context"
	"fmt"
	"strings"
	"time"

	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/match"
	"news-impact-engine/internal/types"
)

// Service runs the full text-side pipeline for one article: normalize,
// match keywords in context, score the composite layers, and write the
// idempotent audit rows.
type Service struct {
	model     *Model
	matcher   *match.Matcher
	keywords  interfaces.KeywordCatalog
	caps      interfaces.MarketCapSource
	alerts    interfaces.AlertLogStore
	relevance *RelevanceScorer
}

func NewService(
	model *Model,
	matcher *match.Matcher,
	keywords interfaces.KeywordCatalog,
	caps interfaces.MarketCapSource,
	alerts interfaces.AlertLogStore,
	relevance *RelevanceScorer,
) *Service {
	return &Service{
		model:     model,
		matcher:   matcher,
		keywords:  keywords,
		caps:      caps,
		alerts:    alerts,
		relevance: relevance,
	}
}

// ArticleScore is the result of scoring one article.
type ArticleScore struct {
	Breakdown types.ScoreBreakdown
	Matches   []types.KeywordMatch
	Relevance []TickerRelevance
	Alerted   bool
}

// ScoreArticle scores an article against the active keyword catalog and
// records one alert-log row per matched keyword. Rescoring an already
// logged article recomputes but writes nothing new.
func (s *Service) ScoreArticle(ctx context.Context, a *types.Article) (*ArticleScore, error) {
	timer := logger.StartOperation(ctx, "scoring.score_article", "article_id", a.ID)
	ctx = timer.GetContext()

	keywords, err := s.keywords.ActiveKeywords(ctx)
	if err != nil {
		timer.EndWithError(err)
		return nil, fmt.Errorf("loading keyword catalog: %w", err)
	}

	text := a.Title + " " + match.NormalizeHTML(a.Summary)
	matches := s.matcher.MatchKeywords(text, keywords)
	if len(matches) == 0 {
		timer.End("matched", 0)
		return &ArticleScore{}, nil
	}

	tickers := splitCSV(a.Tickers)
	smallestCap := s.smallestCap(ctx, tickers)
	breakdown := s.model.ScoreArticle(ctx, text, matches, smallestCap)

	result := &ArticleScore{
		Breakdown: breakdown,
		Matches:   matches,
		Alerted:   s.model.ShouldAlert(breakdown.ScoreTotal),
	}
	if s.relevance != nil && len(tickers) > 0 {
		result.Relevance = s.relevance.Score(a.Title, text, tickers, companyNameMap(tickers, a.CompanyNames))
	}

	primary := ""
	if len(tickers) > 0 {
		primary = tickers[0]
	}
	logger.Score(ctx, primary, a.ID, breakdown.ScoreTotal, string(breakdown.SurpriseDirection),
		"matched_keywords", len(matches), "alerted", result.Alerted)

	if s.alerts != nil {
		for _, km := range matches {
			inserted, err := s.alerts.LogAlert(ctx, &types.AlertLog{
				ArticleID:         a.ID,
				KeywordID:         km.KeywordID,
				Keyword:           km.Keyword,
				ScoreTotal:        breakdown.ScoreTotal,
				ScoreKeyword:      breakdown.ScoreKeyword,
				ScoreCapMult:      breakdown.ScoreCapMult,
				ScoreSurprise:     breakdown.ScoreSurprise,
				SurpriseDirection: breakdown.SurpriseDirection,
				AlertSent:         result.Alerted,
				CreatedAt:         time.Now().UTC(),
			})
			if err != nil {
				timer.EndWithError(err)
				return nil, fmt.Errorf("logging alert for keyword %q: %w", km.Keyword, err)
			}
			if inserted && result.Alerted {
				logger.Alert(ctx, primary, km.Keyword, breakdown.ScoreTotal)
			}
		}
	}

	timer.End("matched", len(matches), "score_total", breakdown.ScoreTotal)
	return result, nil
}

// smallestCap finds the smallest known market cap among the tickers.
func (s *Service) smallestCap(ctx context.Context, tickers []string) *int64 {
	if s.caps == nil {
		return nil
	}
	var smallest *int64
	for _, t := range tickers {
		cap, ok := s.caps.MarketCapUSD(ctx, t)
		if !ok {
			continue
		}
		if smallest == nil || cap < *smallest {
			v := cap
			smallest = &v
		}
	}
	return smallest
}

func companyNameMap(tickers []string, companyNames string) map[string]string {
	names := splitCSV(companyNames)
	out := make(map[string]string, len(names))
	for i, t := range tickers {
		if i < len(names) {
			out[t] = names[i]
		}
	}
	return out
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
