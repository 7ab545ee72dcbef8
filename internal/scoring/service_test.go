package scoring

import (
	"context"
	"testing"

	"news-impact-engine/internal/match"
	"news-impact-engine/internal/types"
)

type stubKeywords struct {
	kws []types.Keyword
}

func (s stubKeywords) ActiveKeywords(ctx context.Context) ([]types.Keyword, error) {
	return s.kws, nil
}

type stubCaps struct {
	caps map[string]int64
}

func (s stubCaps) MarketCapUSD(ctx context.Context, ticker string) (int64, bool) {
	v, ok := s.caps[ticker]
	return v, ok
}

type memAlerts struct {
	rows map[[2]int64]*types.AlertLog
}

func newMemAlerts() *memAlerts {
	return &memAlerts{rows: map[[2]int64]*types.AlertLog{}}
}

func (s *memAlerts) LogAlert(ctx context.Context, row *types.AlertLog) (bool, error) {
	k := [2]int64{row.ArticleID, row.KeywordID}
	if _, ok := s.rows[k]; ok {
		return false, nil
	}
	cp := *row
	s.rows[k] = &cp
	return true, nil
}

func testService(alerts *memAlerts) *Service {
	return NewService(
		NewDefaultModel(),
		match.NewMatcher(5, 50),
		stubKeywords{kws: []types.Keyword{
			{ID: 1, Keyword: "fda approval", EventScore: 8},
			{ID: 2, Keyword: "recall", EventScore: 6},
		}},
		stubCaps{caps: map[string]int64{"ACME": 800_000_000, "ZEN": 40_000_000_000}},
		alerts,
		NewRelevanceScorer(nil),
	)
}

func TestScoreArticleEndToEnd(t *testing.T) {
	alerts := newMemAlerts()
	svc := testService(alerts)

	a := &types.Article{
		ID:           11,
		Title:        "ACME wins FDA approval",
		Summary:      "<p>The agency granted <b>accelerated approval</b> for the drug.</p>",
		Tickers:      "ACME,ZEN",
		CompanyNames: "Acme Corp,Zenith Inc",
	}
	got, err := svc.ScoreArticle(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Matches) != 1 || got.Matches[0].Keyword != "fda approval" {
		t.Fatalf("matches %+v", got.Matches)
	}
	// smallest cap is ACME's 0.8B: micro-cap tier
	if got.Breakdown.ScoreCapMult != 1.6 {
		t.Fatalf("cap_mult=%v", got.Breakdown.ScoreCapMult)
	}
	// 8*1.6 + 2 ("accelerated approval") = 14.8
	if got.Breakdown.ScoreTotal != 14.8 {
		t.Fatalf("total=%v", got.Breakdown.ScoreTotal)
	}
	if !got.Alerted {
		t.Fatal("threshold 10 crossed, expected alert")
	}
	if len(alerts.rows) != 1 {
		t.Fatalf("alert rows=%d", len(alerts.rows))
	}
	row := alerts.rows[[2]int64{11, 1}]
	if row == nil || !row.AlertSent {
		t.Fatalf("row %+v", row)
	}
	if len(got.Relevance) != 2 || got.Relevance[0].Ticker != "ACME" {
		t.Fatalf("relevance %+v", got.Relevance)
	}
}

func TestScoreArticleRescoreWritesNothing(t *testing.T) {
	alerts := newMemAlerts()
	svc := testService(alerts)
	a := &types.Article{ID: 11, Title: "FDA approval for ACME", Tickers: "ACME"}

	if _, err := svc.ScoreArticle(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	before := len(alerts.rows)
	if _, err := svc.ScoreArticle(context.Background(), a); err != nil {
		t.Fatal(err)
	}
	if len(alerts.rows) != before {
		t.Fatal("rescore must not add rows")
	}
}

func TestScoreArticleNoMatches(t *testing.T) {
	alerts := newMemAlerts()
	svc := testService(alerts)
	a := &types.Article{ID: 12, Title: "Quiet day in the markets", Tickers: "ACME"}

	got, err := svc.ScoreArticle(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Matches) != 0 || got.Alerted {
		t.Fatalf("got %+v", got)
	}
	if len(alerts.rows) != 0 {
		t.Fatal("no match, no audit row")
	}
}

func TestScoreArticleNegatedKeywordDiscounted(t *testing.T) {
	alerts := newMemAlerts()
	svc := testService(alerts)
	a := &types.Article{
		ID:      13,
		Title:   "Regulator did not recall the device",
		Tickers: "ACME",
	}
	got, err := svc.ScoreArticle(context.Background(), a)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Matches) != 1 || !got.Matches[0].IsNegated {
		t.Fatalf("matches %+v", got.Matches)
	}
	// 6 * 0.3 truncated = 1
	if got.Breakdown.ScoreKeyword != 1 {
		t.Fatalf("keyword=%d", got.Breakdown.ScoreKeyword)
	}
}
