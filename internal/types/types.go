package types

import "time"

// PriceBar is one daily OHLCV bar. Series are ascending by date and
// ticker-scoped; bars are immutable once fetched.
type PriceBar struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

// ProcessingStatus tracks the lifecycle of an (article, ticker) event window.
type ProcessingStatus string

const (
	StatusNotStarted ProcessingStatus = "not_started"
	StatusComplete   ProcessingStatus = "complete"
	StatusFailed     ProcessingStatus = "failed"
)

// MaxRetries caps how often a failed (article, ticker) pair is retried
// before it is skipped until explicitly reset.
const MaxRetries = 3

// EventWindow holds the multi-horizon event study metrics for one
// (article, ticker) pair. Metric fields are nil when the required price
// or benchmark points do not exist; nil means "unknown", never zero.
type EventWindow struct {
	ArticleID int64  `gorm:"primaryKey;column:article_id"`
	Ticker    string `gorm:"primaryKey;size:12"`

	ReturnPre1D *float64 `gorm:"column:return_pre_1d"`
	ReturnPre3D *float64 `gorm:"column:return_pre_3d"`
	ReturnPre5D *float64 `gorm:"column:return_pre_5d"`

	Return1D  *float64 `gorm:"column:return_1d"`
	Return3D  *float64 `gorm:"column:return_3d"`
	Return5D  *float64 `gorm:"column:return_5d"`
	Return10D *float64 `gorm:"column:return_10d"`

	AbnormalReturn1D  *float64 `gorm:"column:abnormal_return_1d"`
	AbnormalReturn3D  *float64 `gorm:"column:abnormal_return_3d"`
	AbnormalReturn5D  *float64 `gorm:"column:abnormal_return_5d"`
	AbnormalReturn10D *float64 `gorm:"column:abnormal_return_10d"`

	VolumeBaseline20D *float64 `gorm:"column:volume_baseline_20d"`
	Volume1D          *int64   `gorm:"column:volume_1d"`
	VolumeRatio1D     *float64 `gorm:"column:volume_ratio_1d"`
	VolumeZScore1D    *float64 `gorm:"column:volume_zscore_1d"`

	VolatilityBaseline20D *float64 `gorm:"column:volatility_baseline_20d"`
	IntradayRange1D       *float64 `gorm:"column:intraday_range_1d"`
	GapMagnitude          *float64 `gorm:"column:gap_magnitude"`

	ProcessingStatus ProcessingStatus `gorm:"column:processing_status;default:not_started"`
	RetryCount       int              `gorm:"column:retry_count"`
	FailureReason    string           `gorm:"column:failure_reason"`
	LastProcessedAt  time.Time        `gorm:"column:last_processed_at"`
}

func (EventWindow) TableName() string { return "event_windows" }

// HorizonReturns carries a benchmark's returns at the standard horizons.
// Nil entries mean the benchmark point is missing for that horizon.
type HorizonReturns struct {
	R1D  *float64
	R3D  *float64
	R5D  *float64
	R10D *float64
}

// Keyword is an active catalog entry with its user-assigned importance.
type Keyword struct {
	ID         int64  `gorm:"primaryKey"`
	Keyword    string `gorm:"uniqueIndex;size:128"`
	EventScore int    `gorm:"column:event_score"`
	IsActive   bool   `gorm:"column:is_active;default:true"`
}

func (Keyword) TableName() string { return "alert_keywords" }

// EntityRole describes how an entity relates to a trigger phrase.
type EntityRole string

const (
	RoleSubject   EntityRole = "subject"
	RoleObject    EntityRole = "object"
	RoleMentioned EntityRole = "mentioned"
)

// KeywordMatch is one context-aware keyword hit in an article. Derived
// per matcher invocation and folded into scoring inputs; not persisted
// on its own.
type KeywordMatch struct {
	KeywordID      int64
	Keyword        string
	EventScore     int
	IsNegated      bool
	Confidence     float64
	ContextSnippet string
	EntityRole     EntityRole
}

// SurpriseDirection classifies which phrase dictionary drove the
// surprise score.
type SurpriseDirection string

const (
	SurprisePositive SurpriseDirection = "positive"
	SurpriseNegative SurpriseDirection = "negative"
	SurpriseMixed    SurpriseDirection = "mixed"
	SurpriseNone     SurpriseDirection = "none"
)

// SurprisePhrase is one weighted dictionary entry or matched hit.
type SurprisePhrase struct {
	Phrase    string
	Weight    int
	Direction SurpriseDirection
}

// ScoreBreakdown is the composite scoring model output:
// score_total = keyword_sum x cap_multiplier + surprise.
// The market reaction layer arrives later as a separate ReactionScore
// record; the original breakdown is never rewritten.
type ScoreBreakdown struct {
	ScoreTotal        float64
	ScoreKeyword      int
	ScoreCapMult      float64
	ScoreSurprise     int
	SurpriseDirection SurpriseDirection
	SurprisePhrases   []SurprisePhrase
	MarketCapUSD      *int64
}

// AlertLog is the persisted audit row for one (article, keyword) score,
// written idempotently and immutable once logged.
type AlertLog struct {
	ArticleID         int64             `gorm:"primaryKey;column:article_id"`
	KeywordID         int64             `gorm:"primaryKey;column:keyword_id"`
	Keyword           string            `gorm:"size:128"`
	ScoreTotal        float64           `gorm:"column:score_total"`
	ScoreKeyword      int               `gorm:"column:score_keyword"`
	ScoreCapMult      float64           `gorm:"column:score_cap_mult"`
	ScoreSurprise     int               `gorm:"column:score_surprise"`
	SurpriseDirection SurpriseDirection `gorm:"column:surprise_dir;size:12"`
	AlertSent         bool              `gorm:"column:alert_sent"`
	CreatedAt         time.Time
}

func (AlertLog) TableName() string { return "alert_log" }

// ReactionScore confirms a text-derived score against observed market
// behaviour. One per (article, ticker), cached and reusable.
type ReactionScore struct {
	ArticleID   int64     `gorm:"primaryKey;column:article_id"`
	Ticker      string    `gorm:"primaryKey;size:12"`
	VolumeScore float64   `gorm:"column:volume_score"`
	GapScore    float64   `gorm:"column:gap_score"`
	TrendScore  float64   `gorm:"column:trend_score"`
	TotalScore  float64   `gorm:"column:total_reaction_score"`
	ComputedAt  time.Time `gorm:"column:computed_at"`
}

func (ReactionScore) TableName() string { return "market_reaction_scores" }

// ConfounderType enumerates the competing explanations the detector knows.
type ConfounderType string

const (
	ConfounderEarnings   ConfounderType = "earnings"
	ConfounderFDAPDUFA   ConfounderType = "fda_pdufa"
	ConfounderFedMeeting ConfounderType = "fed_meeting"
	ConfounderCPIRelease ConfounderType = "cpi_release"
	ConfounderSectorMove ConfounderType = "sector_move"
	ConfounderClustering ConfounderType = "article_clustering"
	ConfounderOther      ConfounderType = "other"
)

// Confounder is one competing explanation for a price move. Ephemeral:
// only the aggregated confidence scalar is persisted downstream.
type Confounder struct {
	Type        ConfounderType
	Description string
	Source      string // "catalog" or "computed"
}

// ConfounderEvent is a curated catalog row (earnings dates, PDUFA dates,
// macro releases). Ticker is nil for market-wide events.
type ConfounderEvent struct {
	ID          int64          `gorm:"primaryKey"`
	EventDate   time.Time      `gorm:"column:event_date;index"`
	Ticker      *string        `gorm:"size:12;index"`
	EventType   ConfounderType `gorm:"column:event_type;size:32"`
	Description string         `gorm:"column:event_description"`
}

func (ConfounderEvent) TableName() string { return "confounder_events" }

// BenchmarkReturn stores a benchmark ticker's precomputed returns for
// one trading day. Rows are maintained by an external collaborator; a
// missing row means the benchmark has not caught up yet.
type BenchmarkReturn struct {
	Ticker     string    `gorm:"primaryKey;size:12"`
	ReturnDate time.Time `gorm:"primaryKey;column:return_date"`
	Return1D   *float64  `gorm:"column:return_1d"`
	Return3D   *float64  `gorm:"column:return_3d"`
	Return5D   *float64  `gorm:"column:return_5d"`
	Return10D  *float64  `gorm:"column:return_10d"`
}

func (BenchmarkReturn) TableName() string { return "benchmark_returns" }

// SectorMapping assigns a ticker its sector ETF and market benchmark.
type SectorMapping struct {
	Ticker          string `gorm:"primaryKey;size:12"`
	SectorETF       string `gorm:"column:sector_etf;size:12"`
	MarketBenchmark string `gorm:"column:market_benchmark;size:12"`
}

func (SectorMapping) TableName() string { return "ticker_sector_mappings" }

// Article is the slice of an ingested feed item the engine reads.
// Ingestion and storage of articles belong to an external collaborator.
type Article struct {
	ID           int64  `gorm:"primaryKey"`
	Title        string
	Summary      string
	Link         string
	Source       string
	Tickers      string    `gorm:"column:stock_tickers"` // comma separated
	CompanyNames string    `gorm:"column:company_names"` // comma separated
	PublishedAt  time.Time `gorm:"column:published_at;index"`
}

func (Article) TableName() string { return "rss_items" }

// PendingPair is one (article, ticker) unit of event study work.
type PendingPair struct {
	ArticleID   int64
	Ticker      string
	CompanyName string
	PublishedAt time.Time
}

// BacktestSample is one historical (score, layer breakdown, realized
// abnormal return) tuple consumed by the backtest engine.
type BacktestSample struct {
	ArticleID           int64
	Ticker              string
	ScoreTotal          float64
	ScoreKeyword        float64
	ScoreCapMult        float64
	ScoreSurprise       float64
	ScoreMarketReaction float64
	AbnormalReturn1D    *float64
	PublishedAt         time.Time
}

// BacktestBucket is a write-once-per-run summary row keyed by
// (run_date, bucket); historical runs accumulate and are never rewritten.
type BacktestBucket struct {
	RunDate           time.Time `gorm:"primaryKey;column:run_date"`
	Bucket            string    `gorm:"primaryKey;size:16;column:score_bucket"`
	RunID             string    `gorm:"column:run_id;size:36"`
	SampleCount       int       `gorm:"column:sample_count"`
	AvgAbnormalReturn *float64  `gorm:"column:avg_abnormal_return_1d"`
	MinAbnormalReturn *float64  `gorm:"column:min_abnormal_return_1d"`
	MaxAbnormalReturn *float64  `gorm:"column:max_abnormal_return_1d"`
	HitRate           *float64  `gorm:"column:hit_rate"`
	PrecisionAtK      *float64  `gorm:"column:precision_at_k"`
}

func (BacktestBucket) TableName() string { return "backtest_buckets" }

// Float64 and Int64 are pointer helpers for nullable metric fields.
func Float64(v float64) *float64 { return &v }
func Int64(v int64) *int64       { return &v }
