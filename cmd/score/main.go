package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"news-impact-engine/internal/match"
	"news-impact-engine/internal/scoring"
	"news-impact-engine/internal/types"
)

// Scores a piece of article text from stdin against the built-in
// vocabulary and a keyword list given as arguments. Useful for checking
// how a headline would score without touching the database.
//
//	echo "ACME wins accelerated approval" | score "fda approval=8" recall
func main() {
	_ = godotenv.Load()

	keywords := parseKeywordArgs(os.Args[1:])
	text := readAll(os.Stdin)
	if strings.TrimSpace(text) == "" {
		fmt.Fprintln(os.Stderr, "usage: echo <article text> | score [keyword[=score] ...]")
		os.Exit(1)
	}
	text = match.NormalizeHTML(text)

	matcher := match.NewMatcher(5, 50)
	model := scoring.NewDefaultModel()

	matches := matcher.MatchKeywords(text, keywords)
	breakdown := model.ScoreArticle(context.Background(), text, matches, nil)

	out := struct {
		Matches   []types.KeywordMatch `json:"matches"`
		Breakdown types.ScoreBreakdown `json:"breakdown"`
		Alert     bool                 `json:"alert"`
	}{
		Matches:   matches,
		Breakdown: breakdown,
		Alert:     model.ShouldAlert(breakdown.ScoreTotal),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(out)
}

// parseKeywordArgs turns "keyword=score" arguments into catalog entries;
// a bare keyword gets the default score.
func parseKeywordArgs(args []string) []types.Keyword {
	var kws []types.Keyword
	for i, a := range args {
		kw := types.Keyword{ID: int64(i + 1), Keyword: a, IsActive: true}
		if k, v, ok := strings.Cut(a, "="); ok {
			kw.Keyword = k
			fmt.Sscanf(v, "%d", &kw.EventScore)
		}
		kws = append(kws, kw)
	}
	return kws
}

func readAll(f *os.File) string {
	var b strings.Builder
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		b.WriteString(sc.Text())
		b.WriteString("\n")
	}
	return b.String()
}
