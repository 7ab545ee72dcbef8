package match

import (
	"regexp"
	"strings"
	"sync"

	"news-impact-engine/internal/types"
)

// negationTerms is the closed set of tokens that flip a keyword hit to
// negated when they appear shortly before it.
var negationTerms = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true, "nor": true,
	"none": true, "nobody": true, "nothing": true, "without": true,
	"lack": true, "lacking": true, "failed": true, "fails": true,
	"failure": true, "denied": true, "denies": true, "reject": true,
	"rejected": true, "rejects": true,
}

const (
	negatedConfidence  = 0.3
	negatedScoreFactor = 0.3
)

// Matcher finds keyword occurrences with negation context. Zero-config
// callers get a 5-token negation window and 50-character snippets.
type Matcher struct {
	negationWindow int
	snippetRadius  int

	mu       sync.Mutex
	patterns map[string]*regexp.Regexp
}

func NewMatcher(negationWindow, snippetRadius int) *Matcher {
	if negationWindow <= 0 {
		negationWindow = 5
	}
	if snippetRadius <= 0 {
		snippetRadius = 50
	}
	return &Matcher{
		negationWindow: negationWindow,
		snippetRadius:  snippetRadius,
		patterns:       map[string]*regexp.Regexp{},
	}
}

func (m *Matcher) pattern(keyword string) *regexp.Regexp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if re, ok := m.patterns[keyword]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(keyword) + `\b`)
	m.patterns[keyword] = re
	return re
}

// MatchKeywords scans text for each catalog keyword. Only the first
// occurrence per keyword is reported; later occurrences do not change
// the negation verdict.
func (m *Matcher) MatchKeywords(text string, keywords []types.Keyword) []types.KeywordMatch {
	var out []types.KeywordMatch
	for _, kw := range keywords {
		if kw.Keyword == "" {
			continue
		}
		loc := m.pattern(kw.Keyword).FindStringIndex(text)
		if loc == nil {
			continue
		}
		negated := m.isNegated(text, loc[0])
		conf := 1.0
		if negated {
			conf = negatedConfidence
		}
		out = append(out, types.KeywordMatch{
			KeywordID:      kw.ID,
			Keyword:        kw.Keyword,
			EventScore:     AdjustScore(kw.EventScore, negated),
			IsNegated:      negated,
			Confidence:     conf,
			ContextSnippet: m.snippet(text, loc[0], loc[1]),
			EntityRole:     types.RoleMentioned,
		})
	}
	return out
}

// isNegated checks the tokens immediately before position for a
// negation term within the configured window.
func (m *Matcher) isNegated(text string, pos int) bool {
	before := strings.Fields(strings.ToLower(text[:pos]))
	start := len(before) - m.negationWindow
	if start < 0 {
		start = 0
	}
	for _, tok := range before[start:] {
		if negationTerms[strings.Trim(tok, ".,;:!?\"'()")] {
			return true
		}
	}
	return false
}

func (m *Matcher) snippet(text string, start, end int) string {
	lo := start - m.snippetRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + m.snippetRadius
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// AdjustScore applies the negation discount: a negated hit keeps 30% of
// its score, truncated, never below 1.
func AdjustScore(score int, negated bool) int {
	if !negated {
		return score
	}
	adj := int(float64(score) * negatedScoreFactor)
	if adj < 1 {
		adj = 1
	}
	return adj
}

// FilterConfident drops matches below the confidence floor.
func FilterConfident(matches []types.KeywordMatch, min float64) []types.KeywordMatch {
	out := make([]types.KeywordMatch, 0, len(matches))
	for _, km := range matches {
		if km.Confidence >= min {
			out = append(out, km)
		}
	}
	return out
}

// ExtractEntityRoles assigns each entity a role relative to the first
// trigger phrase found in text: within 50 characters it is the subject
// (before the trigger) or object (after), otherwise merely mentioned.
func ExtractEntityRoles(text string, entities, triggers []string) map[string]types.EntityRole {
	roles := make(map[string]types.EntityRole, len(entities))
	lower := strings.ToLower(text)

	triggerPos := -1
	for _, tr := range triggers {
		if p := strings.Index(lower, strings.ToLower(tr)); p >= 0 && (triggerPos < 0 || p < triggerPos) {
			triggerPos = p
		}
	}

	for _, ent := range entities {
		if ent == "" {
			continue
		}
		roles[ent] = types.RoleMentioned
		if triggerPos < 0 {
			continue
		}
		// closest mention of the entity to the trigger decides the role
		best := -1
		search := lower
		offset := 0
		for {
			p := strings.Index(search, strings.ToLower(ent))
			if p < 0 {
				break
			}
			abs := offset + p
			if best < 0 || absDiff(abs, triggerPos) < absDiff(best, triggerPos) {
				best = abs
			}
			offset = abs + len(ent)
			search = lower[offset:]
		}
		if best < 0 || absDiff(best, triggerPos) >= 50 {
			continue
		}
		if best < triggerPos {
			roles[ent] = types.RoleSubject
		} else {
			roles[ent] = types.RoleObject
		}
	}
	return roles
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
