package scoring

import (
	"context"
	"testing"

	"news-impact-engine/internal/types"
)

func TestScoreSurpriseSumsAndDirections(t *testing.T) {
	m := NewDefaultModel()

	// 3 + 2 = 5, all positive
	score, dir, hits := m.ScoreSurprise("The trial exceeded primary endpoint and the company beat estimates.")
	if score != 5 {
		t.Fatalf("score=%d want 5", score)
	}
	if dir != types.SurprisePositive {
		t.Fatalf("direction=%s", dir)
	}
	if len(hits) != 2 {
		t.Fatalf("hits=%d", len(hits))
	}

	score, dir, _ = m.ScoreSurprise("Shares fell after a clinical hold was announced.")
	if score != 3 || dir != types.SurpriseNegative {
		t.Fatalf("score=%d dir=%s", score, dir)
	}

	score, dir, _ = m.ScoreSurprise("Record revenue, but guidance was disappointing.")
	if dir != types.SurpriseMixed {
		t.Fatalf("direction=%s want mixed", dir)
	}
	if score != 3 {
		t.Fatalf("score=%d want 3", score)
	}

	score, dir, _ = m.ScoreSurprise("Nothing notable happened today.")
	if score != 0 || dir != types.SurpriseNone {
		t.Fatalf("score=%d dir=%s", score, dir)
	}
}

func TestScoreSurpriseCapped(t *testing.T) {
	m := NewDefaultModel()
	text := "Breakthrough results exceeded primary endpoint with strong efficacy; the company beat estimates and raised guidance."
	score, _, _ := m.ScoreSurprise(text)
	if score != 5 {
		t.Fatalf("score=%d want cap 5", score)
	}
}

func TestScoreSurpriseLongestPhraseClaimsSpan(t *testing.T) {
	m := NewDefaultModel()
	// "complete response letter" (negative 3) contains "complete
	// response" (positive 3); only the longer phrase may count.
	score, dir, hits := m.ScoreSurprise("The FDA issued a complete response letter.")
	if dir != types.SurpriseNegative {
		t.Fatalf("direction=%s want negative", dir)
	}
	if score != 3 {
		t.Fatalf("score=%d want 3", score)
	}
	if len(hits) != 1 || hits[0].Phrase != "complete response letter" {
		t.Fatalf("hits=%+v", hits)
	}
}

func TestScoreSurpriseWholeWordsOnly(t *testing.T) {
	m := NewDefaultModel()
	// "recall" must not fire inside "recalling" or "recalled"
	score, dir, _ := m.ScoreSurprise("Customers kept recalling the recalled jingle.")
	if score != 0 || dir != types.SurpriseNone {
		t.Fatalf("score=%d dir=%s, embedded words must not match", score, dir)
	}
	score, _, hits := m.ScoreSurprise("The company announced a recall of two lots.")
	if score != 2 || len(hits) != 1 || hits[0].Phrase != "recall" {
		t.Fatalf("score=%d hits=%+v", score, hits)
	}
}

func TestScoreArticleComposite(t *testing.T) {
	m := NewDefaultModel()
	matches := []types.KeywordMatch{
		{Keyword: "fda", EventScore: 8},
		{Keyword: "approval", EventScore: 6},
	}
	cap := types.Int64(800_000_000) // micro cap tier 1.6

	bd := m.ScoreArticle(context.Background(), "Acme got accelerated approval.", matches, cap)
	if bd.ScoreKeyword != 14 {
		t.Fatalf("keyword=%d", bd.ScoreKeyword)
	}
	if bd.ScoreCapMult != 1.6 {
		t.Fatalf("cap_mult=%v", bd.ScoreCapMult)
	}
	if bd.ScoreSurprise != 2 {
		t.Fatalf("surprise=%d", bd.ScoreSurprise)
	}
	// 14*1.6 + 2 = 24.4
	if bd.ScoreTotal != 24.4 {
		t.Fatalf("total=%v want 24.4", bd.ScoreTotal)
	}
}

func TestScoreArticleKeywordOrderIrrelevant(t *testing.T) {
	m := NewDefaultModel()
	a := []types.KeywordMatch{{EventScore: 3}, {EventScore: 9}, {EventScore: 1}}
	b := []types.KeywordMatch{{EventScore: 9}, {EventScore: 1}, {EventScore: 3}}
	text := "plain text"
	if m.ScoreArticle(context.Background(), text, a, nil).ScoreTotal !=
		m.ScoreArticle(context.Background(), text, b, nil).ScoreTotal {
		t.Fatal("keyword order must not change the total")
	}
}

func TestScoreArticleDefaultEventScore(t *testing.T) {
	m := NewDefaultModel()
	bd := m.ScoreArticle(context.Background(), "x", []types.KeywordMatch{{Keyword: "unscored"}}, nil)
	if bd.ScoreKeyword != 5 {
		t.Fatalf("keyword=%d want default 5", bd.ScoreKeyword)
	}
}

func TestCapMultiplierTiers(t *testing.T) {
	cases := []struct {
		cap  *int64
		want float64
	}{
		{types.Int64(500_000_000), 1.6},
		{types.Int64(3_000_000_000), 1.3},
		{types.Int64(15_000_000_000), 1.1},
		{types.Int64(100_000_000_000), 1.0},
		{nil, 1.0},
	}
	for _, c := range cases {
		if got := CapMultiplier(c.cap); got != c.want {
			t.Errorf("cap=%v got %v want %v", c.cap, got, c.want)
		}
	}
}

func TestShouldAlert(t *testing.T) {
	m := NewModel(DefaultVocabulary(), 5, 5, 12)
	if m.ShouldAlert(11.9) {
		t.Fatal("below threshold")
	}
	if !m.ShouldAlert(12) {
		t.Fatal("at threshold must alert")
	}
}

func TestCombinedScore(t *testing.T) {
	bd := types.ScoreBreakdown{ScoreTotal: 18.2}
	if got := CombinedScore(bd, nil); got != 18.2 {
		t.Fatalf("got %v", got)
	}
	if got := CombinedScore(bd, &types.ReactionScore{TotalScore: 4}); got != 22.2 {
		t.Fatalf("got %v", got)
	}
}
