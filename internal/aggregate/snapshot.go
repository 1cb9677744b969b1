package aggregate

import (
	"math"
	"sort"
	"time"

	"market-intel/internal/domain"
)

// SnapshotInputs carries everything BuildDailySnapshot joins for one
// (date, asset) pair. Any nil/empty field leaves the matching snapshot
// column null without suppressing the row.
type SnapshotInputs struct {
	// DayBars are the asset's hourly bars on the snapshot date.
	DayBars []domain.OHLCBar
	// WindowCloses are closes over the trailing 7-day window, the
	// snapshot date included.
	WindowCloses []float64
	Index        *domain.SentimentIndexPoint
	// ETFNetFlow is the summed net flow across tickers for the date.
	ETFNetFlow   *float64
	Metrics      *domain.MarketMetrics
	AvgFunding   *float64
	OpenInterest *float64
}

// BuildDailySnapshot assembles the per-asset daily fact row. Returns
// nil when the asset has no bars on the date: price is the anchor
// metric and without it there is no row to join onto.
func BuildDailySnapshot(date time.Time, asset string, in SnapshotInputs) *domain.DailySnapshot {
	if len(in.DayBars) == 0 {
		return nil
	}

	bars := make([]domain.OHLCBar, len(in.DayBars))
	copy(bars, in.DayBars)
	sort.Slice(bars, func(i, j int) bool { return bars[i].TsUTC.Before(bars[j].TsUTC) })

	snap := &domain.DailySnapshot{
		AsOfDate: domain.DayOf(date),
		Asset:    asset,
	}

	last := bars[len(bars)-1]
	closePrice := last.Close
	snap.PriceCloseUSD = &closePrice

	// 24-bar lag against the day's own bars; a day with fewer than 25
	// bars has no lag value and leaves the change null.
	if len(bars) >= 25 {
		ago := bars[len(bars)-25].Close
		if ago != 0 {
			chg := (closePrice - ago) / ago * 100
			snap.PriceChg24hPct = &chg
		}
	}

	if vol, ok := realizedVol(in.WindowCloses); ok {
		snap.RealizedVol7dPct = &vol
	}

	if s := dominantSession(bars); s != "" {
		snap.DominantSession = &s
	}

	if in.Index != nil {
		v := in.Index.Value
		c := in.Index.Classification
		snap.FNGValue = &v
		snap.FNGClassification = &c
	}
	snap.ETFNetFlowUSD = in.ETFNetFlow
	if in.Metrics != nil {
		snap.Volume24hUSD = in.Metrics.Volume24hUSD
		snap.MarketCapUSD = in.Metrics.MarketCapUSD
		snap.BTCDominancePct = in.Metrics.BTCDominancePct
	}
	snap.AvgFundingRatePct = in.AvgFunding
	snap.OpenInterestUSD = in.OpenInterest
	return snap
}

// realizedVol is the coefficient of variation over the window closes,
// in percent. A constant series yields 0; an empty window or zero mean
// yields no value.
func realizedVol(closes []float64) (float64, bool) {
	if len(closes) == 0 {
		return 0, false
	}
	var sum, sumSq float64
	for _, c := range closes {
		sum += c
		sumSq += c * c
	}
	n := float64(len(closes))
	avg := sum / n
	if avg == 0 {
		return 0, false
	}
	variance := sumSq/n - avg*avg
	if variance < 0 {
		variance = 0
	}
	return math.Sqrt(variance) / avg * 100, true
}

// dominantSession is the modal session tag among the day's bars, ties
// broken by earliest occurrence.
func dominantSession(bars []domain.OHLCBar) string {
	counts := make(map[string]int)
	order := make(map[string]int)
	for _, b := range bars {
		if b.Session == "" {
			continue
		}
		if _, seen := counts[b.Session]; !seen {
			order[b.Session] = len(order)
		}
		counts[b.Session]++
	}
	best := ""
	for s, c := range counts {
		if best == "" || c > counts[best] || (c == counts[best] && order[s] < order[best]) {
			best = s
		}
	}
	return best
}
