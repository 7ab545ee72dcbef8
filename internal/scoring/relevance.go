package scoring

import (
	"sort"
	"strings"
)

const (
	relevanceTitleWeight     = 0.5
	relevanceMentionWeight   = 0.1
	relevanceMentionCap      = 0.3
	relevanceProximityWeight = 0.2
	relevanceProximityChars  = 50
)

// TickerRelevance is one ticker's share of an article's attention.
type TickerRelevance struct {
	Ticker string
	Score  float64
}

// RelevanceScorer splits attention across the tickers named in a
// multi-ticker article. Scores are normalized so the most relevant
// ticker reads 1.0.
type RelevanceScorer struct {
	triggers []string
}

func NewRelevanceScorer(triggers []string) *RelevanceScorer {
	if len(triggers) == 0 {
		triggers = DefaultTriggerPhrases()
	}
	return &RelevanceScorer{triggers: triggers}
}

// Score ranks the given tickers for one article. companyNames maps a
// ticker to its display name and may be sparse. A single-ticker article
// is trivially fully relevant.
func (r *RelevanceScorer) Score(title, body string, tickers []string, companyNames map[string]string) []TickerRelevance {
	if len(tickers) == 0 {
		return nil
	}
	if len(tickers) == 1 {
		return []TickerRelevance{{Ticker: tickers[0], Score: 1.0}}
	}

	lowerTitle := strings.ToLower(title)
	lowerBody := strings.ToLower(body)

	out := make([]TickerRelevance, 0, len(tickers))
	maxScore := 0.0
	for _, t := range tickers {
		needles := []string{strings.ToLower(t)}
		if name, ok := companyNames[t]; ok && name != "" {
			needles = append(needles, strings.ToLower(name))
		}

		score := 0.0
		if containsAny(lowerTitle, needles) {
			score += relevanceTitleWeight
		}

		mentions := 0
		for _, n := range needles {
			mentions += strings.Count(lowerBody, n)
		}
		mentionScore := float64(mentions) * relevanceMentionWeight
		if mentionScore > relevanceMentionCap {
			mentionScore = relevanceMentionCap
		}
		score += mentionScore

		if r.nearTrigger(lowerBody, needles) {
			score += relevanceProximityWeight
		}

		out = append(out, TickerRelevance{Ticker: t, Score: score})
		if score > maxScore {
			maxScore = score
		}
	}

	if maxScore > 0 {
		for i := range out {
			out[i].Score = out[i].Score / maxScore
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// TopRelevant keeps at most n tickers scoring at least minScore.
func (r *RelevanceScorer) TopRelevant(rels []TickerRelevance, n int, minScore float64) []TickerRelevance {
	out := make([]TickerRelevance, 0, n)
	for _, rel := range rels {
		if len(out) >= n {
			break
		}
		if rel.Score >= minScore {
			out = append(out, rel)
		}
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// nearTrigger reports whether any mention sits within the proximity
// window of a trigger phrase.
func (r *RelevanceScorer) nearTrigger(body string, needles []string) bool {
	for _, tr := range r.triggers {
		tp := strings.Index(body, tr)
		if tp < 0 {
			continue
		}
		for _, n := range needles {
			offset := 0
			rest := body
			for {
				p := strings.Index(rest, n)
				if p < 0 {
					break
				}
				abs := offset + p
				if abs < tp {
					if tp-(abs+len(n)) < relevanceProximityChars {
						return true
					}
				} else if abs-(tp+len(tr)) < relevanceProximityChars {
					return true
				}
				offset = abs + len(n)
				rest = body[offset:]
			}
		}
	}
	return false
}
