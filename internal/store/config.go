package store

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DB struct {
		URL          string `yaml:"url"`
		URLEnv       string `yaml:"url_env"`
		MaxOpenConns int    `yaml:"max_open_conns"`
		MaxIdleConns int    `yaml:"max_idle_conns"`
	} `yaml:"db"`
	Redis struct {
		URL    string `yaml:"url"`
		URLEnv string `yaml:"url_env"`
	} `yaml:"redis"`
	MarketData struct {
		BaseURL          string `yaml:"base_url"`
		APIKeyEnv        string `yaml:"api_key_env"`
		RateDelaySeconds int    `yaml:"rate_delay_seconds"`
		CooldownSeconds  int    `yaml:"cooldown_seconds"`
		TimeoutSeconds   int    `yaml:"timeout_seconds"`
	} `yaml:"market_data"`
	EventStudy struct {
		DaysBefore  int `yaml:"days_before"`
		DaysAfter   int `yaml:"days_after"`
		MaxRetries  int `yaml:"max_retries"`
		BatchLimit  int `yaml:"batch_limit"`
		PollSeconds int `yaml:"poll_seconds"`
	} `yaml:"event_study"`
	Matcher struct {
		NegationWindow int `yaml:"negation_window"`
		SnippetRadius  int `yaml:"snippet_radius"`
	} `yaml:"matcher"`
	Scoring struct {
		DefaultEventScore int     `yaml:"default_event_score"`
		SurpriseCap       int     `yaml:"surprise_cap"`
		AlertThreshold    float64 `yaml:"alert_threshold"`
		QuietMode         bool    `yaml:"quiet_mode"`
	} `yaml:"scoring"`
	Reaction struct {
		CacheTTLMinutes int `yaml:"cache_ttl_minutes"`
	} `yaml:"reaction"`
	Confounders struct {
		WindowDays             int     `yaml:"window_days"`
		SectorMoveThresholdPct float64 `yaml:"sector_move_threshold_pct"`
		ClusterThreshold       int     `yaml:"cluster_threshold"`
		MinConfidence          float64 `yaml:"min_confidence"`
	} `yaml:"confounders"`
	Backtest struct {
		HitThresholdPct float64 `yaml:"hit_threshold_pct"`
		TopK            int     `yaml:"top_k"`
		MinScore        float64 `yaml:"min_score"`
	} `yaml:"backtest"`
	Benchmarks struct {
		Default   string            `yaml:"default"`
		SectorMap map[string]string `yaml:"sector_map"` // company-name fragment -> sector ETF
	} `yaml:"benchmarks"`
}

func (c *Config) Validate() error {
	if c.MarketData.BaseURL == "" {
		return errors.New("market_data.base_url cannot be empty")
	}
	if c.MarketData.RateDelaySeconds <= 0 {
		return fmt.Errorf("market_data.rate_delay_seconds must be positive, got %d", c.MarketData.RateDelaySeconds)
	}
	if c.EventStudy.DaysBefore < 25 {
		return fmt.Errorf("event_study.days_before must cover the 20-day baseline, got %d", c.EventStudy.DaysBefore)
	}
	if c.EventStudy.DaysAfter < 15 {
		return fmt.Errorf("event_study.days_after must cover the 10-day horizon, got %d", c.EventStudy.DaysAfter)
	}
	if c.Scoring.QuietMode && c.Scoring.AlertThreshold < 10 {
		return fmt.Errorf("scoring.alert_threshold must be >= 10 in quiet mode, got %.1f", c.Scoring.AlertThreshold)
	}
	if c.Confounders.MinConfidence < 0 || c.Confounders.MinConfidence > 1 {
		return fmt.Errorf("confounders.min_confidence must be within 0-1, got %.2f", c.Confounders.MinConfidence)
	}
	if c.Benchmarks.Default == "" {
		return errors.New("benchmarks.default cannot be empty")
	}
	return nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if c.DB.URLEnv == "" {
		c.DB.URLEnv = "DATABASE_URL"
	}
	if c.Redis.URLEnv == "" {
		c.Redis.URLEnv = "REDIS_URL"
	}
	if c.DB.MaxOpenConns == 0 {
		c.DB.MaxOpenConns = 10
	}
	if c.DB.MaxIdleConns == 0 {
		c.DB.MaxIdleConns = 5
	}
	if c.MarketData.RateDelaySeconds == 0 {
		c.MarketData.RateDelaySeconds = 8
	}
	if c.MarketData.CooldownSeconds == 0 {
		c.MarketData.CooldownSeconds = 60
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 30
	}
	if c.EventStudy.DaysBefore == 0 {
		c.EventStudy.DaysBefore = 30
	}
	if c.EventStudy.DaysAfter == 0 {
		c.EventStudy.DaysAfter = 15
	}
	if c.EventStudy.MaxRetries == 0 {
		c.EventStudy.MaxRetries = 3
	}
	if c.EventStudy.BatchLimit == 0 {
		c.EventStudy.BatchLimit = 50
	}
	if c.EventStudy.PollSeconds == 0 {
		c.EventStudy.PollSeconds = 300
	}
	if c.Matcher.NegationWindow == 0 {
		c.Matcher.NegationWindow = 5
	}
	if c.Matcher.SnippetRadius == 0 {
		c.Matcher.SnippetRadius = 50
	}
	if c.Scoring.DefaultEventScore == 0 {
		c.Scoring.DefaultEventScore = 5
	}
	if c.Scoring.SurpriseCap == 0 {
		c.Scoring.SurpriseCap = 5
	}
	if c.Scoring.AlertThreshold == 0 {
		c.Scoring.AlertThreshold = 10
	}
	if c.Reaction.CacheTTLMinutes == 0 {
		c.Reaction.CacheTTLMinutes = 60
	}
	if c.Confounders.WindowDays == 0 {
		c.Confounders.WindowDays = 1
	}
	if c.Confounders.SectorMoveThresholdPct == 0 {
		c.Confounders.SectorMoveThresholdPct = 3.0
	}
	if c.Confounders.ClusterThreshold == 0 {
		c.Confounders.ClusterThreshold = 3
	}
	if c.Confounders.MinConfidence == 0 {
		c.Confounders.MinConfidence = 0.7
	}
	if c.Backtest.HitThresholdPct == 0 {
		c.Backtest.HitThresholdPct = 2.0
	}
	if c.Backtest.TopK == 0 {
		c.Backtest.TopK = 10
	}
	if c.Backtest.MinScore == 0 {
		c.Backtest.MinScore = 5.0
	}
	if c.Benchmarks.Default == "" {
		c.Benchmarks.Default = "SPY"
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// DatabaseURL resolves the Postgres DSN, preferring the env var.
func (c *Config) DatabaseURL() string {
	if v := os.Getenv(c.DB.URLEnv); v != "" {
		return v
	}
	return c.DB.URL
}

// RedisURL resolves the redis connection URL, preferring the env var.
func (c *Config) RedisURL() string {
	if v := os.Getenv(c.Redis.URLEnv); v != "" {
		return v
	}
	return c.Redis.URL
}
