package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"news-impact-engine/internal/backtest"
	"news-impact-engine/internal/db"
	"news-impact-engine/internal/store"
)

func main() {
	_ = godotenv.Load()
	cfg, err := store.LoadConfig(configPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	gdb, err := db.ConnectPostgres(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	st := db.NewStore(gdb)

	lookbackDays := 90
	if v := os.Getenv("BACKTEST_LOOKBACK_DAYS"); v != "" {
		fmt.Sscanf(v, "%d", &lookbackDays)
	}

	engine := backtest.NewEngine(st, st, cfg.Backtest.HitThresholdPct, cfg.Backtest.TopK, cfg.Backtest.MinScore)
	end := time.Now()
	report, err := engine.Run(context.Background(), end.AddDate(0, 0, -lookbackDays), end)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Backtest failed: %v\n", err)
		os.Exit(1)
	}

	printReport(report, cfg.Backtest.HitThresholdPct)

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		saveJSON(report, "backtest_results.json")
	}
}

func printReport(r *backtest.Report, hitThreshold float64) {
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Println("                 SCORE CALIBRATION REPORT")
	fmt.Println("═══════════════════════════════════════════════════════════════")
	fmt.Printf("Run:          %s (%s)\n", r.RunID, r.RunDate.Format("2006-01-02"))
	fmt.Printf("Samples:      %d\n", r.SampleCount)
	fmt.Printf("Hit = |abnormal 1d return| > %.1f%%\n", hitThreshold)
	fmt.Println()

	if r.SampleCount == 0 {
		fmt.Println("⚠️  No completed samples to evaluate yet")
		return
	}

	fmt.Println("Score buckets:")
	for _, b := range r.Buckets {
		fmt.Printf("  %-6s n=%-4d avg AR %7.3f%%  hit rate %5.1f%%  [%.2f .. %.2f]\n",
			b.Bucket, b.SampleCount, deref(b.AvgAbnormalReturn),
			deref(b.HitRate)*100, deref(b.MinAbnormalReturn), deref(b.MaxAbnormalReturn))
	}
	fmt.Println()

	if r.PrecisionAtK != nil {
		fmt.Printf("Precision@%d:  %.1f%%\n", r.K, *r.PrecisionAtK*100)
	}
	if len(r.Deciles) > 0 {
		fmt.Println("Deciles (10 = highest scores):")
		for _, d := range r.Deciles {
			fmt.Printf("  %2d  n=%-4d scores [%.1f .. %.1f]  avg AR %7.3f%%\n",
				d.Index, d.SampleCount, d.MinScore, d.MaxScore, d.AvgAbnormalReturn)
		}
	}
	if len(r.Correlations) > 0 {
		fmt.Println()
		fmt.Println("Layer correlations with 1d abnormal return:")
		for _, c := range r.Correlations {
			fmt.Printf("  %-16s r=%7.4f  (%s)\n", c.Layer, c.R, c.Interpretation)
		}
	}

	if len(r.Recommendations) > 0 {
		fmt.Println()
		fmt.Println("Recommendations:")
		for _, rec := range r.Recommendations {
			fmt.Printf("  %s\n", rec)
		}
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

func saveJSON(r *backtest.Report, filename string) {
	file, err := os.Create(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create JSON file: %v\n", err)
		return
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write JSON: %v\n", err)
		return
	}
	fmt.Printf("💾 Results saved to %s\n", filename)
}

func configPath() string {
	if v := os.Getenv("ENGINE_CONFIG"); v != "" {
		return v
	}
	return "config.yaml"
}
