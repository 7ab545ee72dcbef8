package eventstudy

import (
	"errors"
	"math"
	"time"

	"news-impact-engine/internal/stats"
	"news-impact-engine/internal/types"
)

var (
	// ErrNoPriceData means no bar exists at or before the event date, so
	// no metric can be anchored.
	ErrNoPriceData = errors.New("no price data at or before event date")
	// ErrInvalidInput means the series is malformed (unsorted, zero prices).
	ErrInvalidInput = errors.New("invalid price series")
)

// Horizons used throughout the event study.
var (
	preHorizons  = []int{1, 3, 5}
	postHorizons = []int{1, 3, 5, 10}
)

const (
	baselineDays    = 20
	tradingDaysYear = 252
	returnPrecision = 4
	volumePrecision = 2
)

// Metrics is the full per-pair measurement set. Nil fields mean the
// series did not extend far enough, never zero.
type Metrics struct {
	ReturnPre1D *float64
	ReturnPre3D *float64
	ReturnPre5D *float64

	Return1D  *float64
	Return3D  *float64
	Return5D  *float64
	Return10D *float64

	VolumeBaseline20D *float64
	Volume1D          *int64
	VolumeRatio1D     *float64
	VolumeZScore1D    *float64

	VolatilityBaseline20D *float64
	IntradayRange1D       *float64
	GapMagnitude          *float64
}

// EventIndex returns the index of the last bar dated at or before the
// event date. News published on a weekend or holiday anchors to the
// preceding trading day.
func EventIndex(bars []types.PriceBar, event time.Time) (int, error) {
	if len(bars) == 0 {
		return 0, ErrNoPriceData
	}
	eventDay := event.Truncate(24 * time.Hour)
	idx := -1
	for i, b := range bars {
		if i > 0 && b.Date.Before(bars[i-1].Date) {
			return 0, ErrInvalidInput
		}
		if !b.Date.After(eventDay) {
			idx = i
		}
	}
	if idx < 0 {
		return 0, ErrNoPriceData
	}
	return idx, nil
}

// Compute derives all price, volume, and volatility metrics for an event
// anchored in the given series.
func Compute(bars []types.PriceBar, event time.Time) (*Metrics, error) {
	idx, err := EventIndex(bars, event)
	if err != nil {
		return nil, err
	}
	if bars[idx].Close <= 0 {
		return nil, ErrInvalidInput
	}

	m := &Metrics{}
	computeReturns(m, bars, idx)
	computeVolume(m, bars, idx)
	computeVolatility(m, bars, idx)
	return m, nil
}

// computeReturns fills pre- and post-event simple returns in percent.
func computeReturns(m *Metrics, bars []types.PriceBar, idx int) {
	eventClose := bars[idx].Close

	set := func(dst **float64, from, to float64) {
		if from <= 0 {
			return
		}
		v := stats.Round((to-from)/from*100, returnPrecision)
		*dst = &v
	}

	for _, h := range preHorizons {
		if idx-h < 0 {
			continue
		}
		switch h {
		case 1:
			set(&m.ReturnPre1D, bars[idx-1].Close, eventClose)
		case 3:
			set(&m.ReturnPre3D, bars[idx-3].Close, eventClose)
		case 5:
			set(&m.ReturnPre5D, bars[idx-5].Close, eventClose)
		}
	}

	for _, h := range postHorizons {
		if idx+h >= len(bars) {
			continue
		}
		switch h {
		case 1:
			set(&m.Return1D, eventClose, bars[idx+1].Close)
		case 3:
			set(&m.Return3D, eventClose, bars[idx+3].Close)
		case 5:
			set(&m.Return5D, eventClose, bars[idx+5].Close)
		case 10:
			set(&m.Return10D, eventClose, bars[idx+10].Close)
		}
	}
}

// computeVolume fills the 20-day baseline, next-day volume, ratio, and
// z-score. The baseline is the fixed 20 bars before the event; zero
// volume bars (halts, bad data) inside that window are excluded rather
// than reaching further back. A zero or missing baseline leaves ratio
// and z-score nil.
func computeVolume(m *Metrics, bars []types.PriceBar, idx int) {
	start := idx - baselineDays
	if start < 0 {
		start = 0
	}
	var baseline []float64
	for i := start; i < idx; i++ {
		if bars[i].Volume > 0 {
			baseline = append(baseline, float64(bars[i].Volume))
		}
	}
	if len(baseline) > 0 {
		mean := stats.Mean(baseline)
		m.VolumeBaseline20D = types.Float64(stats.Round(mean, volumePrecision))
	}

	if idx+1 >= len(bars) {
		return
	}
	vol := bars[idx+1].Volume
	m.Volume1D = types.Int64(vol)

	if m.VolumeBaseline20D == nil || *m.VolumeBaseline20D == 0 {
		return
	}
	mean := stats.Mean(baseline)
	m.VolumeRatio1D = types.Float64(stats.Round(float64(vol)/mean, volumePrecision))

	sd := stats.StdDev(baseline)
	z := 0.0
	if sd > 0 {
		z = (float64(vol) - mean) / sd
	}
	m.VolumeZScore1D = types.Float64(stats.Round(z, volumePrecision))
}

// computeVolatility fills the annualized 20-day realized volatility, the
// next-day intraday range, and the overnight gap magnitude.
func computeVolatility(m *Metrics, bars []types.PriceBar, idx int) {
	// Simple close-to-close returns over the 20 bars ending at the event.
	var rets []float64
	for i := idx - baselineDays + 1; i <= idx; i++ {
		if i <= 0 {
			continue
		}
		prev := bars[i-1].Close
		if prev <= 0 {
			continue
		}
		rets = append(rets, (bars[i].Close-prev)/prev)
	}
	if len(rets) >= 2 {
		ann := stats.StdDev(rets) * math.Sqrt(tradingDaysYear) * 100
		m.VolatilityBaseline20D = types.Float64(stats.Round(ann, returnPrecision))
	}

	if idx+1 >= len(bars) {
		return
	}
	next := bars[idx+1]
	if next.Open > 0 {
		m.IntradayRange1D = types.Float64(stats.Round((next.High-next.Low)/next.Open*100, returnPrecision))
	}
	eventClose := bars[idx].Close
	if eventClose > 0 {
		m.GapMagnitude = types.Float64(stats.Round((next.Open-eventClose)/eventClose*100, returnPrecision))
	}
}
