package aggregate

import (
	"sort"
	"strings"
	"time"

	"market-intel/internal/domain"
)

// BuildNewsSentimentDaily recomputes the daily news row for one
// calendar day from its raw articles. Returns nil when the day has no
// articles so callers skip the upsert instead of writing a zero row.
func BuildNewsSentimentDaily(date time.Time, articles []domain.NewsArticle) *domain.NewsSentimentDaily {
	day := domain.DayOf(date)
	var dayArticles []domain.NewsArticle
	for _, a := range articles {
		if domain.SameDay(a.PublishedAt, day) {
			dayArticles = append(dayArticles, a)
		}
	}
	if len(dayArticles) == 0 {
		return nil
	}

	n := len(dayArticles)
	var compounds []float64
	var positive, negative int
	sourceCounts := make(map[string]int)
	sourceOrder := make(map[string]int)
	titles := make([]string, 0, n)
	for _, a := range dayArticles {
		compounds = append(compounds, a.SentimentCompound)
		if a.SentimentCompound >= 0.05 {
			positive++
		} else if a.SentimentCompound <= -0.05 {
			negative++
		}
		if a.Source != "" && a.Source != "Unknown" {
			if _, seen := sourceCounts[a.Source]; !seen {
				sourceOrder[a.Source] = len(sourceOrder)
			}
			sourceCounts[a.Source]++
		}
		titles = append(titles, a.Title)
	}

	sources := make([]string, 0, len(sourceCounts))
	for s := range sourceCounts {
		sources = append(sources, s)
	}
	sort.Slice(sources, func(i, j int) bool {
		if sourceCounts[sources[i]] != sourceCounts[sources[j]] {
			return sourceCounts[sources[i]] > sourceCounts[sources[j]]
		}
		return sourceOrder[sources[i]] < sourceOrder[sources[j]]
	})
	if len(sources) > 5 {
		sources = sources[:5]
	}

	neutral := n - positive - negative
	return &domain.NewsSentimentDaily{
		AsOfDate:     day,
		ArticleCount: n,
		AvgSentiment: mean(compounds),
		PositivePct:  float64(positive) / float64(n) * 100,
		NegativePct:  float64(negative) / float64(n) * 100,
		NeutralPct:   float64(neutral) / float64(n) * 100,
		TopSources:   strings.Join(sources, ","),
		TopKeywords:  strings.Join(ExtractKeywords(titles, 10), ","),
		Source:       "NEWSAPI",
	}
}
