package store

import (
	"context"
	"fmt"
	"time"

	"market-intel/internal/aggregate"
	"market-intel/internal/domain"
)

// ComputeSocialSentimentFromRaw recomputes every per-platform daily row
// for the calendar day from social_posts_raw and overwrites the
// aggregate table. Returns the number of rows written.
func (s *Store) ComputeSocialSentimentFromRaw(ctx context.Context, date time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "store.compute-social-sentiment")
	defer span.End()

	day := domain.DayOf(date)
	posts, err := s.socialPostsForDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("load social posts for %s: %w", domain.DateString(day), err)
	}
	rows := aggregate.BuildSocialSentimentDailies(day, posts)
	return s.upsertSocialSentimentDailies(ctx, rows)
}

// ComputeNewsSentimentFromRaw recomputes the daily news row for the
// calendar day from news_articles_raw. A day without articles writes
// nothing and returns 0.
func (s *Store) ComputeNewsSentimentFromRaw(ctx context.Context, date time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "store.compute-news-sentiment")
	defer span.End()

	day := domain.DayOf(date)
	articles, err := s.newsArticlesForDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("load news articles for %s: %w", domain.DateString(day), err)
	}
	row := aggregate.BuildNewsSentimentDaily(day, articles)
	if row == nil {
		return 0, nil
	}
	return s.upsertNewsSentimentDaily(ctx, *row)
}

// ComputeSearchInterestFromRaw recomputes the per-keyword daily
// interest rows for the calendar day, diffing against the previous
// day's aggregate rows for the change percentage.
func (s *Store) ComputeSearchInterestFromRaw(ctx context.Context, date time.Time) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "store.compute-search-interest")
	defer span.End()

	day := domain.DayOf(date)
	points, err := s.searchTrendsForDay(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("load search trends for %s: %w", domain.DateString(day), err)
	}
	prev, err := s.searchInterestFor(ctx, day.AddDate(0, 0, -1))
	if err != nil {
		return 0, fmt.Errorf("load prior-day interest: %w", err)
	}
	rows := aggregate.BuildSearchInterestDailies(day, points, prev)
	return s.upsertSearchInterestDailies(ctx, rows)
}

// ComputeDailySnapshots rebuilds the per-asset snapshot rows for the
// calendar day from everything ingested so far. Assets without bars on
// the day produce no row.
func (s *Store) ComputeDailySnapshots(ctx context.Context, date time.Time, assets []string) (int64, error) {
	ctx, span := s.tracer.Start(ctx, "store.compute-daily-snapshots")
	defer span.End()

	day := domain.DayOf(date)

	index, err := s.sentimentIndexFor(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("load sentiment index for %s: %w", domain.DateString(day), err)
	}
	etfNetFlow, err := s.etfNetFlowFor(ctx, day)
	if err != nil {
		return 0, fmt.Errorf("load etf net flow: %w", err)
	}

	var snaps []domain.DailySnapshot
	for _, asset := range assets {
		bars, err := s.barsForDay(ctx, asset, day)
		if err != nil {
			return 0, fmt.Errorf("load bars for %s: %w", asset, err)
		}
		if len(bars) == 0 {
			continue
		}
		closes, err := s.windowCloses(ctx, asset, day)
		if err != nil {
			return 0, fmt.Errorf("load window closes for %s: %w", asset, err)
		}
		metrics, err := s.marketMetricsFor(ctx, asset, day)
		if err != nil {
			return 0, fmt.Errorf("load market metrics for %s: %w", asset, err)
		}
		funding, err := s.avgFundingFor(ctx, asset, day)
		if err != nil {
			return 0, fmt.Errorf("load funding for %s: %w", asset, err)
		}
		openInterest, err := s.avgOpenInterestFor(ctx, asset, day)
		if err != nil {
			return 0, fmt.Errorf("load open interest for %s: %w", asset, err)
		}

		snap := aggregate.BuildDailySnapshot(day, asset, aggregate.SnapshotInputs{
			DayBars:      bars,
			WindowCloses: closes,
			Index:        index,
			ETFNetFlow:   etfNetFlow,
			Metrics:      metrics,
			AvgFunding:   funding,
			OpenInterest: openInterest,
		})
		if snap != nil {
			snaps = append(snaps, *snap)
		}
	}
	return s.upsertDailySnapshots(ctx, snaps)
}
