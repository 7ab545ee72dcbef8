package scoring

// Vocabulary holds the weighted surprise phrase dictionaries. Weights
// are magnitudes; direction comes from which dictionary a phrase sits in.
type Vocabulary struct {
	Positive map[string]int
	Negative map[string]int
}

// DefaultVocabulary returns the built-in surprise dictionaries, tuned
// for biotech and earnings newsflow.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Positive: map[string]int{
			"statistically significant improvement": 3,
			"exceeded primary endpoint":             3,
			"complete response":                     3,
			"better than expected":                  2,
			"exceeded expectations":                 2,
			"beat estimates":                        2,
			"blew past":                             2,
			"strong efficacy":                       2,
			"unexpected":                            2,
			"breakthrough":                          2,
			"first-in-class":                        2,
			"accelerated approval":                  2,
			"raised guidance":                       2,
			"record revenue":                        2,
			"superior to":                           2,
			"outperformed":                          1,
			"ahead of schedule":                     1,
			"positive data":                         1,
		},
		Negative: map[string]int{
			"complete response letter": 3,
			"clinical hold":            3,
			"did not achieve":          2,
			"worse than expected":      2,
			"missed estimates":         2,
			"failed to meet":           2,
			"safety concern":           2,
			"adverse event":            2,
			"recall":                   2,
			"lowered guidance":         2,
			"terminated":               2,
			"suspended":                2,
			"warning letter":           2,
			"downgraded":               1,
			"disappointing":            1,
		},
	}
}

// capTier maps a market capitalization ceiling to its score multiplier.
type capTier struct {
	MaxUSD     int64
	Multiplier float64
}

// capTiers are evaluated smallest first; an unknown cap gets 1.0.
var capTiers = []capTier{
	{MaxUSD: 1_000_000_000, Multiplier: 1.6},
	{MaxUSD: 5_000_000_000, Multiplier: 1.3},
	{MaxUSD: 20_000_000_000, Multiplier: 1.1},
}

// CapMultiplier returns the size multiplier for the smallest market cap
// among the article's tickers. Unknown caps never amplify a score.
func CapMultiplier(smallestCapUSD *int64) float64 {
	if smallestCapUSD == nil || *smallestCapUSD <= 0 {
		return 1.0
	}
	for _, t := range capTiers {
		if *smallestCapUSD < t.MaxUSD {
			return t.Multiplier
		}
	}
	return 1.0
}

// DefaultTriggerPhrases are the market-moving phrases used for entity
// role extraction and relevance proximity.
func DefaultTriggerPhrases() []string {
	return []string{
		"fda approval", "fda rejection", "clinical trial", "phase 3",
		"phase 2", "breakthrough", "acquisition", "merger", "partnership",
		"collaboration", "earnings", "revenue", "guidance", "recall",
		"lawsuit", "settlement", "approval", "rejected", "failed",
		"succeeded", "exceeded", "missed", "announced", "reported",
		"filed", "submitted", "received", "granted",
	}
}
