package domain

import "time"

// OHLCBar is one hourly price bar for an asset. Keyed by (asset, ts_utc);
// re-fetching the same hour overwrites in place.
type OHLCBar struct {
	Asset   string    `json:"asset"`
	TsUTC   time.Time `json:"ts_utc"`
	Open    float64   `json:"open"`
	High    float64   `json:"high"`
	Low     float64   `json:"low"`
	Close   float64   `json:"close"`
	Session string    `json:"session"`
}

// SentimentIndexPoint is one day of the market-wide fear & greed index.
type SentimentIndexPoint struct {
	AsOfDate       time.Time `json:"as_of_date"`
	Value          int       `json:"fng_value"`
	Classification string    `json:"classification"`
}

// ETFFlow is the daily net flow for a single spot ETF ticker.
type ETFFlow struct {
	AsOfDate   time.Time `json:"as_of_date"`
	Ticker     string    `json:"ticker"`
	NetFlowUSD *float64  `json:"net_flow_usd,omitempty"`
	AUMUSD     *float64  `json:"aum_usd,omitempty"`
	Source     string    `json:"source"`
}

// MarketMetrics is the daily volume/cap/dominance row for an asset.
type MarketMetrics struct {
	AsOfDate          time.Time `json:"as_of_date"`
	Asset             string    `json:"asset"`
	Volume24hUSD      *float64  `json:"volume_24h_usd,omitempty"`
	MarketCapUSD      *float64  `json:"market_cap_usd,omitempty"`
	BTCDominancePct   *float64  `json:"btc_dominance_pct,omitempty"`
	PriceChange24hPct *float64  `json:"price_change_24h_pct,omitempty"`
	Source            string    `json:"source"`
}

// FundingRate is a point-in-time perpetual funding snapshot, deduplicated
// by (ts_utc, asset, source).
type FundingRate struct {
	TsUTC                time.Time `json:"ts_utc"`
	Asset                string    `json:"asset"`
	FundingRatePct       float64   `json:"funding_rate_pct"`
	FundingIntervalHours int       `json:"funding_interval_hours"`
	MarkPrice            *float64  `json:"mark_price,omitempty"`
	Source               string    `json:"source"`
}

// OpenInterest is the daily open-interest reading per asset and source.
type OpenInterest struct {
	AsOfDate              time.Time `json:"as_of_date"`
	Asset                 string    `json:"asset"`
	OpenInterestUSD       float64   `json:"open_interest_usd"`
	OpenInterestContracts *float64  `json:"open_interest_contracts,omitempty"`
	Source                string    `json:"source"`
}

// SocialPost is a raw social media post with its sentiment tuple attached
// at fetch time. Keyed by post_id across platforms.
type SocialPost struct {
	PostID      string    `json:"post_id"`
	Platform    string    `json:"platform"`
	Subreddit   *string   `json:"subreddit,omitempty"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Author      string    `json:"author"`
	CreatedUTC  time.Time `json:"created_utc"`
	Score       int       `json:"score"`
	UpvoteRatio *float64  `json:"upvote_ratio,omitempty"`
	NumComments int       `json:"num_comments"`
	Shares      int       `json:"shares"`
	URL         string    `json:"url"`

	SentimentCompound float64 `json:"sentiment_compound"`
	SentimentPos      float64 `json:"sentiment_pos"`
	SentimentNeg      float64 `json:"sentiment_neg"`
	SentimentNeu      float64 `json:"sentiment_neu"`
	SentimentLabel    string  `json:"sentiment_label"`
}

// NewsArticle is a raw news article keyed by URL.
type NewsArticle struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Author      string    `json:"author"`
	PublishedAt time.Time `json:"published_at"`

	SentimentCompound   float64  `json:"sentiment_compound"`
	SentimentLabel      string   `json:"sentiment_label"`
	SentimentConfidence float64  `json:"sentiment_confidence"`
	PositiveProb        *float64 `json:"positive_prob,omitempty"`
	NegativeProb        *float64 `json:"negative_prob,omitempty"`
	NeutralProb         *float64 `json:"neutral_prob,omitempty"`
}

// SearchTrendPoint is one raw search-interest observation for a keyword.
type SearchTrendPoint struct {
	TsUTC         time.Time `json:"ts_utc"`
	Keyword       string    `json:"keyword"`
	InterestScore float64   `json:"interest_score"`
	Geo           string    `json:"geo"`
	Timeframe     string    `json:"timeframe"`
}

// SocialSentimentDaily is the derived per-platform daily aggregate over
// raw posts. Fully recomputed from social_posts_raw for its date.
type SocialSentimentDaily struct {
	AsOfDate         time.Time `json:"as_of_date"`
	Platform         string    `json:"platform"`
	MentionsCount    int       `json:"mentions_count"`
	SentimentScore   float64   `json:"sentiment_score"`
	PositiveMentions int       `json:"positive_mentions"`
	NegativeMentions int       `json:"negative_mentions"`
	NeutralMentions  int       `json:"neutral_mentions"`
	EngagementScore  float64   `json:"engagement_score"`
	TopKeywords      string    `json:"top_keywords"`
	Source           string    `json:"source"`
}

// NewsSentimentDaily is the derived daily aggregate over raw articles.
type NewsSentimentDaily struct {
	AsOfDate     time.Time `json:"as_of_date"`
	ArticleCount int       `json:"article_count"`
	AvgSentiment float64   `json:"avg_sentiment"`
	PositivePct  float64   `json:"positive_pct"`
	NegativePct  float64   `json:"negative_pct"`
	NeutralPct   float64   `json:"neutral_pct"`
	TopSources   string    `json:"top_sources"`
	TopKeywords  string    `json:"top_keywords"`
	Source       string    `json:"source"`
}

// SearchInterestDaily is the derived per-keyword daily interest with a
// day-over-day delta. InterestChangePct is nil when no prior-day data
// exists or the prior-day score is zero.
type SearchInterestDaily struct {
	AsOfDate          time.Time `json:"as_of_date"`
	Keyword           string    `json:"keyword"`
	InterestScore     float64   `json:"interest_score"`
	InterestChangePct *float64  `json:"interest_change_pct,omitempty"`
	Source            string    `json:"source"`
}

// DailySnapshot is the terminal cross-source fact row per asset per date.
// Every joined metric is nullable: a missing source leaves its fields nil
// without suppressing the row.
type DailySnapshot struct {
	AsOfDate          time.Time `json:"as_of_date"`
	Asset             string    `json:"asset"`
	PriceCloseUSD     *float64  `json:"price_close_usd,omitempty"`
	PriceChg24hPct    *float64  `json:"price_chg_24h_pct,omitempty"`
	Volume24hUSD      *float64  `json:"volume_24h_usd,omitempty"`
	RealizedVol7dPct  *float64  `json:"realized_vol_7d_pct,omitempty"`
	FNGValue          *int      `json:"fng_value,omitempty"`
	FNGClassification *string   `json:"fng_classification,omitempty"`
	ETFNetFlowUSD     *float64  `json:"etf_net_flow_usd,omitempty"`
	DominantSession   *string   `json:"dominant_session,omitempty"`
	BTCDominancePct   *float64  `json:"btc_dominance_pct,omitempty"`
	MarketCapUSD      *float64  `json:"market_cap_usd,omitempty"`
	AvgFundingRatePct *float64  `json:"avg_funding_rate_pct,omitempty"`
	OpenInterestUSD   *float64  `json:"open_interest_usd,omitempty"`
}
