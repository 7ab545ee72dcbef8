package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"news-impact-engine/internal/db"
	"news-impact-engine/internal/eventstudy"
	"news-impact-engine/internal/interfaces"
	"news-impact-engine/internal/logger"
	"news-impact-engine/internal/marketdata"
	"news-impact-engine/internal/match"
	"news-impact-engine/internal/scoring"
	"news-impact-engine/internal/store"
	"news-impact-engine/internal/trace"
)

// articleLookbackDays bounds the unscored-article scan; older items are
// considered settled.
const articleLookbackDays = 7

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}

func main() {
	_ = godotenv.Load()
	cfg, err := store.LoadConfig(configPath())
	must(err)
	must(logger.Init())
	if err := trace.Init(); err != nil {
		log.Printf("tracer init failed, continuing without spans: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer logger.Shutdown(context.Background())
	defer trace.Shutdown(context.Background())

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	gdb, err := db.ConnectPostgres(cfg)
	must(err)
	st := db.NewStore(gdb)
	must(st.Migrate())

	var cache *redis.Client
	if cfg.RedisURL() != "" {
		cache, err = db.ConnectRedis(cfg)
		if err != nil {
			logger.Warn(ctx, "Redis unavailable, reaction cache disabled", "error", err)
			cache = nil
		}
	}

	var prices interfaces.PriceSource
	if os.Getenv("MARKET_DATA_MOCK") == "true" {
		logger.Warn(ctx, "Using mock price source")
		prices = marketdata.NewMockPriceSource()
	} else {
		prices = marketdata.NewClient(
			cfg.MarketData.BaseURL,
			os.Getenv(cfg.MarketData.APIKeyEnv),
			time.Duration(cfg.MarketData.RateDelaySeconds)*time.Second,
			marketdata.WithCooldown(time.Duration(cfg.MarketData.CooldownSeconds)*time.Second),
		)
	}

	sectors := sectorMapper(cfg, st)
	orch := eventstudy.NewOrchestrator(
		prices, st, sectors, st,
		cfg.EventStudy.DaysBefore, cfg.EventStudy.DaysAfter,
		cfg.EventStudy.MaxRetries, cfg.Benchmarks.Default,
	)

	model := scoring.NewModel(
		scoring.DefaultVocabulary(),
		cfg.Scoring.DefaultEventScore, cfg.Scoring.SurpriseCap, cfg.Scoring.AlertThreshold,
	)
	matcher := match.NewMatcher(cfg.Matcher.NegationWindow, cfg.Matcher.SnippetRadius)
	svc := scoring.NewService(model, matcher, st, nil, st, scoring.NewRelevanceScorer(nil))
	reactions := scoring.NewReactionScorer(st, st, st, cache,
		time.Duration(cfg.Reaction.CacheTTLMinutes)*time.Minute)

	if len(os.Args) > 1 && os.Args[1] == "--reset-failed" {
		n, err := orch.ResetFailed(ctx)
		must(err)
		log.Printf("reset %d failed pairs", n)
		return
	}

	tick := time.NewTicker(time.Duration(cfg.EventStudy.PollSeconds) * time.Second)
	defer tick.Stop()

	logger.Info(ctx, "Engine started",
		"poll_seconds", cfg.EventStudy.PollSeconds,
		"batch_limit", cfg.EventStudy.BatchLimit)

	p := pipeline{st: st, svc: svc, orch: orch, reactions: reactions, limit: cfg.EventStudy.BatchLimit}

	// immediate first pass, then on the ticker
	p.run(ctx)
	for {
		select {
		case <-tick.C:
			p.run(ctx)
		case <-sigc:
			logger.Info(ctx, "Shutting down")
			return
		case <-ctx.Done():
			return
		}
	}
}

// pipeline runs the three batch stages in order: score fresh articles
// and fan their event windows out, process pending windows, then confirm
// completed windows against the market reaction.
type pipeline struct {
	st        *db.Store
	svc       *scoring.Service
	orch      *eventstudy.Orchestrator
	reactions *scoring.ReactionScorer
	limit     int
}

func (p pipeline) run(ctx context.Context) {
	p.scoreArticles(ctx)
	if _, err := p.orch.ProcessPending(ctx, p.limit); err != nil {
		logger.ErrorWithErr(ctx, "Event study batch failed", err)
	}
	p.scoreReactions(ctx)
}

func (p pipeline) scoreArticles(ctx context.Context) {
	since := time.Now().AddDate(0, 0, -articleLookbackDays)
	articles, err := p.st.UnscoredArticles(ctx, since, p.limit)
	if err != nil {
		logger.ErrorWithErr(ctx, "Listing unscored articles failed", err)
		return
	}
	for i := range articles {
		a := &articles[i]
		if _, err := p.svc.ScoreArticle(ctx, a); err != nil {
			logger.ErrorWithErr(ctx, "Scoring article failed", err, "article_id", a.ID)
			continue
		}
		if _, err := p.st.EnqueueArticle(ctx, a); err != nil {
			logger.ErrorWithErr(ctx, "Enqueueing event windows failed", err, "article_id", a.ID)
		}
	}
}

func (p pipeline) scoreReactions(ctx context.Context) {
	pairs, err := p.st.PendingReactionPairs(ctx, p.limit)
	if err != nil {
		logger.ErrorWithErr(ctx, "Listing pending reaction pairs failed", err)
		return
	}
	for _, pair := range pairs {
		if _, err := p.reactions.Score(ctx, pair.ArticleID, pair.Ticker, pair.PublishedAt); err != nil {
			logger.ErrorWithErr(ctx, "Reaction scoring failed", err,
				"article_id", pair.ArticleID, "ticker", pair.Ticker)
		}
	}
}

// sectorMapper prefers the curated table and falls back to the
// config-level company-name fragments.
func sectorMapper(cfg *store.Config, st *db.Store) interfaces.SectorMapper {
	static := eventstudy.NewStaticSectorMapper(nil, cfg.Benchmarks.SectorMap)
	return chainMapper{primary: st, fallback: static}
}

type chainMapper struct {
	primary, fallback interfaces.SectorMapper
}

func (c chainMapper) SectorETF(ctx context.Context, ticker, companyName string) (string, bool) {
	if etf, ok := c.primary.SectorETF(ctx, ticker, companyName); ok {
		return etf, true
	}
	return c.fallback.SectorETF(ctx, ticker, companyName)
}

func configPath() string {
	if v := os.Getenv("ENGINE_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
