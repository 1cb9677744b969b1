package store

import (
	"context"
	"time"

	"market-intel/internal/domain"
)

// tableNames in a fixed order for the status surface.
var countedTables = []string{
	"ohlc_hourly", "sentiment_daily", "etf_flows_daily",
	"market_metrics_daily", "funding_rates_snapshots", "open_interest_daily",
	"social_posts_raw", "news_articles_raw", "search_trends_raw",
	"social_sentiment_daily", "news_sentiment_daily", "search_interest_daily",
	"daily_market_snapshot",
}

// RecordCounts returns the row count of every data table.
func (s *Store) RecordCounts(ctx context.Context) (map[string]int64, error) {
	ctx, span := s.tracer.Start(ctx, "store.record-counts")
	defer span.End()

	counts := make(map[string]int64, len(countedTables))
	for _, table := range countedTables {
		var n int64
		// table names come from the fixed list above, never from input
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *Store) barsForDay(ctx context.Context, asset string, day time.Time) ([]domain.OHLCBar, error) {
	rows, err := s.pool.Query(ctx, `
SELECT asset, ts_utc, open, high, low, close, COALESCE(session, '')
FROM ohlc_hourly
WHERE asset = $1 AND ts_utc >= $2 AND ts_utc < $3
ORDER BY ts_utc`,
		asset, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bars []domain.OHLCBar
	for rows.Next() {
		var b domain.OHLCBar
		if err := rows.Scan(&b.Asset, &b.TsUTC, &b.Open, &b.High, &b.Low, &b.Close, &b.Session); err != nil {
			return nil, err
		}
		bars = append(bars, b)
	}
	return bars, rows.Err()
}

func (s *Store) windowCloses(ctx context.Context, asset string, day time.Time) ([]float64, error) {
	rows, err := s.pool.Query(ctx, `
SELECT close FROM ohlc_hourly
WHERE asset = $1 AND ts_utc >= $2 AND ts_utc <= $3
ORDER BY ts_utc`,
		asset, day.AddDate(0, 0, -7), day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var closes []float64
	for rows.Next() {
		var c float64
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		closes = append(closes, c)
	}
	return closes, rows.Err()
}

func (s *Store) sentimentIndexFor(ctx context.Context, day time.Time) (*domain.SentimentIndexPoint, error) {
	rows, err := s.pool.Query(ctx, `
SELECT as_of_date, fng_value, classification
FROM sentiment_daily WHERE as_of_date = $1`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var p domain.SentimentIndexPoint
	if err := rows.Scan(&p.AsOfDate, &p.Value, &p.Classification); err != nil {
		return nil, err
	}
	return &p, rows.Err()
}

func (s *Store) etfNetFlowFor(ctx context.Context, day time.Time) (*float64, error) {
	var sum *float64
	err := s.pool.QueryRow(ctx, `
SELECT SUM(net_flow_usd) FROM etf_flows_daily WHERE as_of_date = $1`, day).Scan(&sum)
	return sum, err
}

func (s *Store) marketMetricsFor(ctx context.Context, asset string, day time.Time) (*domain.MarketMetrics, error) {
	rows, err := s.pool.Query(ctx, `
SELECT as_of_date, asset, volume_24h_usd, market_cap_usd, btc_dominance_pct, price_change_24h_pct, COALESCE(source, '')
FROM market_metrics_daily WHERE as_of_date = $1 AND asset = $2`, day, asset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	var m domain.MarketMetrics
	if err := rows.Scan(&m.AsOfDate, &m.Asset, &m.Volume24hUSD, &m.MarketCapUSD,
		&m.BTCDominancePct, &m.PriceChange24hPct, &m.Source); err != nil {
		return nil, err
	}
	return &m, rows.Err()
}

func (s *Store) avgFundingFor(ctx context.Context, asset string, day time.Time) (*float64, error) {
	var avg *float64
	err := s.pool.QueryRow(ctx, `
SELECT AVG(funding_rate_pct) FROM funding_rates_snapshots
WHERE asset = $1 AND ts_utc >= $2 AND ts_utc < $3`,
		asset, day, day.AddDate(0, 0, 1)).Scan(&avg)
	return avg, err
}

func (s *Store) avgOpenInterestFor(ctx context.Context, asset string, day time.Time) (*float64, error) {
	var avg *float64
	err := s.pool.QueryRow(ctx, `
SELECT AVG(open_interest_usd) FROM open_interest_daily
WHERE asset = $1 AND as_of_date = $2`, asset, day).Scan(&avg)
	return avg, err
}

func (s *Store) socialPostsForDay(ctx context.Context, day time.Time) ([]domain.SocialPost, error) {
	rows, err := s.pool.Query(ctx, `
SELECT post_id, platform, subreddit, COALESCE(title, ''), COALESCE(body, ''),
       COALESCE(author, ''), created_utc, score, upvote_ratio, num_comments,
       shares, COALESCE(url, ''),
       COALESCE(sentiment_compound, 0), COALESCE(sentiment_pos, 0),
       COALESCE(sentiment_neg, 0), COALESCE(sentiment_neu, 0),
       COALESCE(sentiment_label, 'neutral')
FROM social_posts_raw
WHERE created_utc >= $1 AND created_utc < $2`,
		day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.SocialPost
	for rows.Next() {
		var p domain.SocialPost
		if err := rows.Scan(&p.PostID, &p.Platform, &p.Subreddit, &p.Title, &p.Body,
			&p.Author, &p.CreatedUTC, &p.Score, &p.UpvoteRatio, &p.NumComments,
			&p.Shares, &p.URL, &p.SentimentCompound, &p.SentimentPos,
			&p.SentimentNeg, &p.SentimentNeu, &p.SentimentLabel); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (s *Store) newsArticlesForDay(ctx context.Context, day time.Time) ([]domain.NewsArticle, error) {
	rows, err := s.pool.Query(ctx, `
SELECT url, COALESCE(title, ''), COALESCE(description, ''), COALESCE(source, ''),
       COALESCE(author, ''), published_at,
       COALESCE(sentiment_compound, 0), COALESCE(sentiment_label, 'neutral'),
       COALESCE(sentiment_confidence, 0), positive_prob, negative_prob, neutral_prob
FROM news_articles_raw
WHERE published_at >= $1 AND published_at < $2`,
		day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var articles []domain.NewsArticle
	for rows.Next() {
		var a domain.NewsArticle
		if err := rows.Scan(&a.URL, &a.Title, &a.Description, &a.Source, &a.Author,
			&a.PublishedAt, &a.SentimentCompound, &a.SentimentLabel,
			&a.SentimentConfidence, &a.PositiveProb, &a.NegativeProb, &a.NeutralProb); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

func (s *Store) searchTrendsForDay(ctx context.Context, day time.Time) ([]domain.SearchTrendPoint, error) {
	rows, err := s.pool.Query(ctx, `
SELECT ts_utc, keyword, interest_score, COALESCE(geo, ''), COALESCE(timeframe, '')
FROM search_trends_raw
WHERE ts_utc >= $1 AND ts_utc < $2`,
		day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []domain.SearchTrendPoint
	for rows.Next() {
		var p domain.SearchTrendPoint
		if err := rows.Scan(&p.TsUTC, &p.Keyword, &p.InterestScore, &p.Geo, &p.Timeframe); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

func (s *Store) searchInterestFor(ctx context.Context, day time.Time) (map[string]float64, error) {
	rows, err := s.pool.Query(ctx, `
SELECT keyword, interest_score FROM search_interest_daily WHERE as_of_date = $1`, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	scores := make(map[string]float64)
	for rows.Next() {
		var kw string
		var score float64
		if err := rows.Scan(&kw, &score); err != nil {
			return nil, err
		}
		scores[kw] = score
	}
	return scores, rows.Err()
}

// LatestSnapshots returns the most recent snapshot rows for an asset,
// newest first.
func (s *Store) LatestSnapshots(ctx context.Context, asset string, limit int) ([]domain.DailySnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "store.latest-snapshots")
	defer span.End()

	if limit <= 0 {
		limit = 30
	}
	rows, err := s.pool.Query(ctx, `
SELECT as_of_date, asset, price_close_usd, price_chg_24h_pct, volume_24h_usd,
       realized_vol_7d_pct, fng_value, fng_classification, etf_net_flow_usd,
       dominant_session, btc_dominance_pct, market_cap_usd,
       avg_funding_rate_pct, open_interest_usd
FROM daily_market_snapshot
WHERE asset = $1
ORDER BY as_of_date DESC
LIMIT $2`, asset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.DailySnapshot
	for rows.Next() {
		var snap domain.DailySnapshot
		if err := rows.Scan(&snap.AsOfDate, &snap.Asset, &snap.PriceCloseUSD,
			&snap.PriceChg24hPct, &snap.Volume24hUSD, &snap.RealizedVol7dPct,
			&snap.FNGValue, &snap.FNGClassification, &snap.ETFNetFlowUSD,
			&snap.DominantSession, &snap.BTCDominancePct, &snap.MarketCapUSD,
			&snap.AvgFundingRatePct, &snap.OpenInterestUSD); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}
