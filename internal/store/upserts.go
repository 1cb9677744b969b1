package store

import (
	"context"
	"log"

	"market-intel/internal/domain"

	"github.com/jackc/pgx/v5"
)

// flushBatch sends a queued batch and sums affected rows. pgx wraps the
// batch in an implicit transaction, so one failing statement aborts the
// whole write.
func (s *Store) flushBatch(ctx context.Context, batch *pgx.Batch, n int) (int64, error) {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	var affected int64
	for i := 0; i < n; i++ {
		tag, err := br.Exec()
		if err != nil {
			return 0, err
		}
		affected += tag.RowsAffected()
	}
	return affected, nil
}

func (s *Store) UpsertOHLCBars(ctx context.Context, bars []domain.OHLCBar) (int64, error) {
	if len(bars) == 0 {
		log.Println("store: no ohlc bars to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-ohlc-bars")
	defer span.End()

	batch := &pgx.Batch{}
	for _, b := range bars {
		batch.Queue(`
INSERT INTO ohlc_hourly (asset, ts_utc, open, high, low, close, session)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (asset, ts_utc) DO UPDATE SET
    open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    session = EXCLUDED.session`,
			b.Asset, b.TsUTC.UTC(), b.Open, b.High, b.Low, b.Close, b.Session)
	}
	return s.flushBatch(ctx, batch, len(bars))
}

func (s *Store) UpsertSentimentIndex(ctx context.Context, points []domain.SentimentIndexPoint) (int64, error) {
	if len(points) == 0 {
		log.Println("store: no sentiment index points to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-sentiment-index")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(`
INSERT INTO sentiment_daily (as_of_date, fng_value, classification)
VALUES ($1, $2, $3)
ON CONFLICT (as_of_date) DO UPDATE SET
    fng_value = EXCLUDED.fng_value,
    classification = EXCLUDED.classification`,
			domain.DayOf(p.AsOfDate), p.Value, p.Classification)
	}
	return s.flushBatch(ctx, batch, len(points))
}

func (s *Store) UpsertETFFlows(ctx context.Context, flows []domain.ETFFlow) (int64, error) {
	if len(flows) == 0 {
		log.Println("store: no etf flows to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-etf-flows")
	defer span.End()

	batch := &pgx.Batch{}
	for _, f := range flows {
		batch.Queue(`
INSERT INTO etf_flows_daily (as_of_date, ticker, net_flow_usd, aum_usd, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (as_of_date, ticker) DO UPDATE SET
    net_flow_usd = EXCLUDED.net_flow_usd,
    aum_usd = EXCLUDED.aum_usd,
    source = EXCLUDED.source`,
			domain.DayOf(f.AsOfDate), f.Ticker, f.NetFlowUSD, f.AUMUSD, f.Source)
	}
	return s.flushBatch(ctx, batch, len(flows))
}

func (s *Store) UpsertMarketMetrics(ctx context.Context, metrics []domain.MarketMetrics) (int64, error) {
	if len(metrics) == 0 {
		log.Println("store: no market metrics to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-market-metrics")
	defer span.End()

	batch := &pgx.Batch{}
	for _, m := range metrics {
		batch.Queue(`
INSERT INTO market_metrics_daily (as_of_date, asset, volume_24h_usd, market_cap_usd, btc_dominance_pct, price_change_24h_pct, source)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (as_of_date, asset) DO UPDATE SET
    volume_24h_usd = EXCLUDED.volume_24h_usd,
    market_cap_usd = EXCLUDED.market_cap_usd,
    btc_dominance_pct = EXCLUDED.btc_dominance_pct,
    price_change_24h_pct = EXCLUDED.price_change_24h_pct,
    source = EXCLUDED.source`,
			domain.DayOf(m.AsOfDate), m.Asset, m.Volume24hUSD, m.MarketCapUSD,
			m.BTCDominancePct, m.PriceChange24hPct, m.Source)
	}
	return s.flushBatch(ctx, batch, len(metrics))
}

func (s *Store) UpsertFundingRates(ctx context.Context, rates []domain.FundingRate) (int64, error) {
	if len(rates) == 0 {
		log.Println("store: no funding rates to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-funding-rates")
	defer span.End()

	batch := &pgx.Batch{}
	for _, r := range rates {
		batch.Queue(`
INSERT INTO funding_rates_snapshots (ts_utc, asset, funding_rate_pct, funding_interval_hours, mark_price, source)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (ts_utc, asset, source) DO UPDATE SET
    funding_rate_pct = EXCLUDED.funding_rate_pct,
    funding_interval_hours = EXCLUDED.funding_interval_hours,
    mark_price = EXCLUDED.mark_price`,
			r.TsUTC.UTC(), r.Asset, r.FundingRatePct, r.FundingIntervalHours, r.MarkPrice, r.Source)
	}
	return s.flushBatch(ctx, batch, len(rates))
}

func (s *Store) UpsertOpenInterest(ctx context.Context, readings []domain.OpenInterest) (int64, error) {
	if len(readings) == 0 {
		log.Println("store: no open interest readings to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-open-interest")
	defer span.End()

	batch := &pgx.Batch{}
	for _, oi := range readings {
		batch.Queue(`
INSERT INTO open_interest_daily (as_of_date, asset, open_interest_usd, open_interest_contracts, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (as_of_date, asset, source) DO UPDATE SET
    open_interest_usd = EXCLUDED.open_interest_usd,
    open_interest_contracts = EXCLUDED.open_interest_contracts`,
			domain.DayOf(oi.AsOfDate), oi.Asset, oi.OpenInterestUSD, oi.OpenInterestContracts, oi.Source)
	}
	return s.flushBatch(ctx, batch, len(readings))
}

func (s *Store) UpsertSocialPosts(ctx context.Context, posts []domain.SocialPost) (int64, error) {
	if len(posts) == 0 {
		log.Println("store: no social posts to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-social-posts")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range posts {
		batch.Queue(`
INSERT INTO social_posts_raw (
    post_id, platform, subreddit, title, body, author, created_utc,
    score, upvote_ratio, num_comments, shares, url,
    sentiment_compound, sentiment_pos, sentiment_neg, sentiment_neu, sentiment_label
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (post_id) DO UPDATE SET
    score = EXCLUDED.score,
    upvote_ratio = EXCLUDED.upvote_ratio,
    num_comments = EXCLUDED.num_comments,
    shares = EXCLUDED.shares,
    sentiment_compound = EXCLUDED.sentiment_compound,
    sentiment_pos = EXCLUDED.sentiment_pos,
    sentiment_neg = EXCLUDED.sentiment_neg,
    sentiment_neu = EXCLUDED.sentiment_neu,
    sentiment_label = EXCLUDED.sentiment_label`,
			p.PostID, p.Platform, p.Subreddit, p.Title, p.Body, p.Author, p.CreatedUTC.UTC(),
			p.Score, p.UpvoteRatio, p.NumComments, p.Shares, p.URL,
			p.SentimentCompound, p.SentimentPos, p.SentimentNeg, p.SentimentNeu, p.SentimentLabel)
	}
	return s.flushBatch(ctx, batch, len(posts))
}

func (s *Store) UpsertNewsArticles(ctx context.Context, articles []domain.NewsArticle) (int64, error) {
	if len(articles) == 0 {
		log.Println("store: no news articles to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-news-articles")
	defer span.End()

	batch := &pgx.Batch{}
	for _, a := range articles {
		batch.Queue(`
INSERT INTO news_articles_raw (
    url, title, description, source, author, published_at,
    sentiment_compound, sentiment_label, sentiment_confidence,
    positive_prob, negative_prob, neutral_prob
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (url) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    source = EXCLUDED.source,
    author = EXCLUDED.author,
    published_at = EXCLUDED.published_at,
    sentiment_compound = EXCLUDED.sentiment_compound,
    sentiment_label = EXCLUDED.sentiment_label,
    sentiment_confidence = EXCLUDED.sentiment_confidence,
    positive_prob = EXCLUDED.positive_prob,
    negative_prob = EXCLUDED.negative_prob,
    neutral_prob = EXCLUDED.neutral_prob`,
			a.URL, a.Title, a.Description, a.Source, a.Author, a.PublishedAt.UTC(),
			a.SentimentCompound, a.SentimentLabel, a.SentimentConfidence,
			a.PositiveProb, a.NegativeProb, a.NeutralProb)
	}
	return s.flushBatch(ctx, batch, len(articles))
}

func (s *Store) UpsertSearchTrends(ctx context.Context, points []domain.SearchTrendPoint) (int64, error) {
	if len(points) == 0 {
		log.Println("store: no search trend points to upsert")
		return 0, nil
	}
	ctx, span := s.tracer.Start(ctx, "store.upsert-search-trends")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range points {
		batch.Queue(`
INSERT INTO search_trends_raw (ts_utc, keyword, interest_score, geo, timeframe)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (ts_utc, keyword) DO UPDATE SET
    interest_score = EXCLUDED.interest_score,
    geo = EXCLUDED.geo,
    timeframe = EXCLUDED.timeframe`,
			p.TsUTC.UTC(), p.Keyword, p.InterestScore, p.Geo, p.Timeframe)
	}
	return s.flushBatch(ctx, batch, len(points))
}

func (s *Store) upsertSocialSentimentDailies(ctx context.Context, rows []domain.SocialSentimentDaily) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
INSERT INTO social_sentiment_daily (
    as_of_date, platform, mentions_count, sentiment_score,
    positive_mentions, negative_mentions, neutral_mentions,
    engagement_score, top_keywords, source
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (as_of_date, platform) DO UPDATE SET
    mentions_count = EXCLUDED.mentions_count,
    sentiment_score = EXCLUDED.sentiment_score,
    positive_mentions = EXCLUDED.positive_mentions,
    negative_mentions = EXCLUDED.negative_mentions,
    neutral_mentions = EXCLUDED.neutral_mentions,
    engagement_score = EXCLUDED.engagement_score,
    top_keywords = EXCLUDED.top_keywords,
    source = EXCLUDED.source`,
			r.AsOfDate, r.Platform, r.MentionsCount, r.SentimentScore,
			r.PositiveMentions, r.NegativeMentions, r.NeutralMentions,
			r.EngagementScore, r.TopKeywords, r.Source)
	}
	return s.flushBatch(ctx, batch, len(rows))
}

func (s *Store) upsertNewsSentimentDaily(ctx context.Context, row domain.NewsSentimentDaily) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
INSERT INTO news_sentiment_daily (
    as_of_date, article_count, avg_sentiment,
    positive_pct, negative_pct, neutral_pct,
    top_sources, top_keywords, source
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (as_of_date) DO UPDATE SET
    article_count = EXCLUDED.article_count,
    avg_sentiment = EXCLUDED.avg_sentiment,
    positive_pct = EXCLUDED.positive_pct,
    negative_pct = EXCLUDED.negative_pct,
    neutral_pct = EXCLUDED.neutral_pct,
    top_sources = EXCLUDED.top_sources,
    top_keywords = EXCLUDED.top_keywords,
    source = EXCLUDED.source`,
		row.AsOfDate, row.ArticleCount, row.AvgSentiment,
		row.PositivePct, row.NegativePct, row.NeutralPct,
		row.TopSources, row.TopKeywords, row.Source)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) upsertSearchInterestDailies(ctx context.Context, rows []domain.SearchInterestDaily) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
INSERT INTO search_interest_daily (as_of_date, keyword, interest_score, interest_change_pct, source)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (as_of_date, keyword) DO UPDATE SET
    interest_score = EXCLUDED.interest_score,
    interest_change_pct = EXCLUDED.interest_change_pct,
    source = EXCLUDED.source`,
			r.AsOfDate, r.Keyword, r.InterestScore, r.InterestChangePct, r.Source)
	}
	return s.flushBatch(ctx, batch, len(rows))
}

func (s *Store) upsertDailySnapshots(ctx context.Context, snaps []domain.DailySnapshot) (int64, error) {
	if len(snaps) == 0 {
		return 0, nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snaps {
		batch.Queue(`
INSERT INTO daily_market_snapshot (
    as_of_date, asset, price_close_usd, price_chg_24h_pct, volume_24h_usd,
    realized_vol_7d_pct, fng_value, fng_classification, etf_net_flow_usd,
    dominant_session, btc_dominance_pct, market_cap_usd,
    avg_funding_rate_pct, open_interest_usd
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
ON CONFLICT (as_of_date, asset) DO UPDATE SET
    price_close_usd = EXCLUDED.price_close_usd,
    price_chg_24h_pct = EXCLUDED.price_chg_24h_pct,
    volume_24h_usd = EXCLUDED.volume_24h_usd,
    realized_vol_7d_pct = EXCLUDED.realized_vol_7d_pct,
    fng_value = EXCLUDED.fng_value,
    fng_classification = EXCLUDED.fng_classification,
    etf_net_flow_usd = EXCLUDED.etf_net_flow_usd,
    dominant_session = EXCLUDED.dominant_session,
    btc_dominance_pct = EXCLUDED.btc_dominance_pct,
    market_cap_usd = EXCLUDED.market_cap_usd,
    avg_funding_rate_pct = EXCLUDED.avg_funding_rate_pct,
    open_interest_usd = EXCLUDED.open_interest_usd`,
			snap.AsOfDate, snap.Asset, snap.PriceCloseUSD, snap.PriceChg24hPct,
			snap.Volume24hUSD, snap.RealizedVol7dPct, snap.FNGValue,
			snap.FNGClassification, snap.ETFNetFlowUSD, snap.DominantSession,
			snap.BTCDominancePct, snap.MarketCapUSD, snap.AvgFundingRatePct,
			snap.OpenInterestUSD)
	}
	return s.flushBatch(ctx, batch, len(snaps))
}
