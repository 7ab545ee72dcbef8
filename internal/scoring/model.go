package scoring

import (
	"context"
	"regexp"
	"sort"

	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/stats"
	"news-impact-engine/internal/types"
)

// Model is the layered composite scorer:
//
//	score_total = keyword_sum * cap_multiplier + surprise
//
// The vocabulary is fixed at construction; scoring is pure and safe for
// concurrent use.
type Model struct {
	phrases           []surprisePattern
	defaultEventScore int
	surpriseCap       int
	alertThreshold    float64
}

type surprisePattern struct {
	phrase    string
	weight    int
	direction types.SurpriseDirection
	re        *regexp.Regexp
}

// NewModel compiles the vocabulary. Patterns are ordered longest phrase
// first so specific phrases claim their text span before fragments do
// ("complete response letter" beats "complete response").
func NewModel(vocab Vocabulary, defaultEventScore, surpriseCap int, alertThreshold float64) *Model {
	m := &Model{
		defaultEventScore: defaultEventScore,
		surpriseCap:       surpriseCap,
		alertThreshold:    alertThreshold,
	}
	add := func(dict map[string]int, dir types.SurpriseDirection) {
		for phrase, weight := range dict {
			m.phrases = append(m.phrases, surprisePattern{
				phrase:    phrase,
				weight:    weight,
				direction: dir,
				re:        regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(phrase) + `\b`),
			})
		}
	}
	add(vocab.Positive, types.SurprisePositive)
	add(vocab.Negative, types.SurpriseNegative)
	sort.Slice(m.phrases, func(i, j int) bool {
		if len(m.phrases[i].phrase) != len(m.phrases[j].phrase) {
			return len(m.phrases[i].phrase) > len(m.phrases[j].phrase)
		}
		return m.phrases[i].phrase < m.phrases[j].phrase
	})
	return m
}

// NewDefaultModel builds a Model over the built-in vocabulary.
func NewDefaultModel() *Model {
	return NewModel(DefaultVocabulary(), 5, 5, 10)
}

// ScoreArticle combines the keyword, market-cap, and surprise layers for
// one article text. smallestCapUSD is the smallest cap among the
// article's tickers, nil when unknown.
func (m *Model) ScoreArticle(ctx context.Context, text string, matches []types.KeywordMatch, smallestCapUSD *int64) types.ScoreBreakdown {
	keywordSum := 0
	for _, km := range matches {
		s := km.EventScore
		if s == 0 {
			s = m.defaultEventScore
		}
		keywordSum += s
	}

	capMult := CapMultiplier(smallestCapUSD)
	surprise, direction, hits := m.ScoreSurprise(text)

	total := stats.Round(float64(keywordSum)*capMult+float64(surprise), 2)
	bd := types.ScoreBreakdown{
		ScoreTotal:        total,
		ScoreKeyword:      keywordSum,
		ScoreCapMult:      capMult,
		ScoreSurprise:     surprise,
		SurpriseDirection: direction,
		SurprisePhrases:   hits,
		MarketCapUSD:      smallestCapUSD,
	}
	logger.Debug(ctx, "Composite score computed",
		"score_total", total, "score_keyword", keywordSum,
		"cap_multiplier", capMult, "score_surprise", surprise,
		"surprise_direction", string(direction))
	return bd
}

// ScoreSurprise scans text for weighted phrases. Each character span is
// claimed once, longest phrase first; the summed magnitude is capped.
func (m *Model) ScoreSurprise(text string) (int, types.SurpriseDirection, []types.SurprisePhrase) {
	type span struct{ lo, hi int }
	var claimed []span
	overlaps := func(lo, hi int) bool {
		for _, s := range claimed {
			if lo < s.hi && hi > s.lo {
				return true
			}
		}
		return false
	}

	var hits []types.SurprisePhrase
	posPoints, negPoints := 0, 0
	for _, p := range m.phrases {
		for _, loc := range p.re.FindAllStringIndex(text, -1) {
			if overlaps(loc[0], loc[1]) {
				continue
			}
			claimed = append(claimed, span{loc[0], loc[1]})
			hits = append(hits, types.SurprisePhrase{Phrase: p.phrase, Weight: p.weight, Direction: p.direction})
			if p.direction == types.SurprisePositive {
				posPoints += p.weight
			} else {
				negPoints += p.weight
			}
		}
	}

	score := posPoints + negPoints
	if score > m.surpriseCap {
		score = m.surpriseCap
	}

	direction := types.SurpriseNone
	switch {
	case posPoints > 0 && negPoints > 0:
		direction = types.SurpriseMixed
	case posPoints > 0:
		direction = types.SurprisePositive
	case negPoints > 0:
		direction = types.SurpriseNegative
	}
	return score, direction, hits
}

// ShouldAlert reports whether a composite score crosses the alert
// threshold. Quiet-mode minimums are enforced at config load.
func (m *Model) ShouldAlert(total float64) bool {
	return total >= m.alertThreshold
}

// CombinedScore folds the deferred market reaction layer into an
// already-persisted composite score.
func CombinedScore(breakdown types.ScoreBreakdown, reaction *types.ReactionScore) float64 {
	if reaction == nil {
		return breakdown.ScoreTotal
	}
	return stats.Round(breakdown.ScoreTotal+reaction.TotalScore, 2)
}
