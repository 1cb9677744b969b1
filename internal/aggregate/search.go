package aggregate

import (
	"sort"
	"time"

	"market-intel/internal/domain"
)

// BuildSearchInterestDailies recomputes the per-keyword daily interest
// rows for one calendar day. The day's interest is the mean of its raw
// observations; the delta compares against prevScores (the prior day's
// interest per keyword) and stays nil when there is no prior value or
// it is zero.
func BuildSearchInterestDailies(date time.Time, points []domain.SearchTrendPoint, prevScores map[string]float64) []domain.SearchInterestDaily {
	day := domain.DayOf(date)
	byKeyword := make(map[string][]float64)
	for _, p := range points {
		if !domain.SameDay(p.TsUTC, day) {
			continue
		}
		byKeyword[p.Keyword] = append(byKeyword[p.Keyword], p.InterestScore)
	}

	keywords := make([]string, 0, len(byKeyword))
	for k := range byKeyword {
		keywords = append(keywords, k)
	}
	sort.Strings(keywords)

	out := make([]domain.SearchInterestDaily, 0, len(keywords))
	for _, kw := range keywords {
		score := mean(byKeyword[kw])
		var changePct *float64
		if prev, ok := prevScores[kw]; ok && prev > 0 {
			delta := round2((score - prev) / prev * 100)
			changePct = &delta
		}
		out = append(out, domain.SearchInterestDaily{
			AsOfDate:          day,
			Keyword:           kw,
			InterestScore:     score,
			InterestChangePct: changePct,
			Source:            "GOOGLE_TRENDS",
		})
	}
	return out
}
