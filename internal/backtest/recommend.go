package backtest

import "fmt"

// Recommend turns a report into advisory calibration notes. These are
// surfaced to operators verbatim; no weight is changed automatically.
func Recommend(r *Report) []string {
	var recs []string

	if r.SampleCount < 30 {
		recs = append(recs, fmt.Sprintf("⚠️ Only %d samples; treat every number below as provisional.", r.SampleCount))
	}

	for _, b := range r.Buckets {
		if b.HitRate == nil || b.AvgAbnormalReturn == nil {
			continue
		}
		switch {
		case b.SampleCount >= 10 && *b.HitRate < 0.3:
			recs = append(recs, fmt.Sprintf("⚠️ Bucket %s hit rate %.0f%% — scores in this range rarely move prices; consider raising keyword thresholds.", b.Bucket, *b.HitRate*100))
		case b.SampleCount >= 10 && *b.HitRate > 0.6:
			recs = append(recs, fmt.Sprintf("✅ Bucket %s hit rate %.0f%% — this range is well calibrated.", b.Bucket, *b.HitRate*100))
		}
	}

	if r.PrecisionAtK != nil {
		if *r.PrecisionAtK >= 0.5 {
			recs = append(recs, fmt.Sprintf("✅ Precision@%d is %.0f%% — top-ranked articles are worth prioritizing.", r.K, *r.PrecisionAtK*100))
		} else {
			recs = append(recs, fmt.Sprintf("⚠️ Precision@%d is %.0f%% — ranking adds little over base rate.", r.K, *r.PrecisionAtK*100))
		}
	}

	for _, c := range r.Correlations {
		if c.Layer == "total" {
			continue
		}
		if c.Interpretation == "negligible" && c.SampleCount >= 30 {
			recs = append(recs, fmt.Sprintf("⚠️ Layer %q shows negligible correlation (r=%.2f); its weight may be noise.", c.Layer, c.R))
		}
		if c.Interpretation == "strong" {
			recs = append(recs, fmt.Sprintf("✅ Layer %q correlates strongly (r=%.2f); keep its weight.", c.Layer, c.R))
		}
	}

	return recs
}
