package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"market-intel/internal/domain"
	"market-intel/internal/sentiment"

	"go.opentelemetry.io/otel/trace"
)

// Store is the slice of the storage engine the pipeline drives.
type Store interface {
	UpsertOHLCBars(ctx context.Context, bars []domain.OHLCBar) (int64, error)
	UpsertSentimentIndex(ctx context.Context, points []domain.SentimentIndexPoint) (int64, error)
	UpsertETFFlows(ctx context.Context, flows []domain.ETFFlow) (int64, error)
	UpsertMarketMetrics(ctx context.Context, metrics []domain.MarketMetrics) (int64, error)
	UpsertFundingRates(ctx context.Context, rates []domain.FundingRate) (int64, error)
	UpsertOpenInterest(ctx context.Context, readings []domain.OpenInterest) (int64, error)
	UpsertSocialPosts(ctx context.Context, posts []domain.SocialPost) (int64, error)
	UpsertNewsArticles(ctx context.Context, articles []domain.NewsArticle) (int64, error)
	UpsertSearchTrends(ctx context.Context, points []domain.SearchTrendPoint) (int64, error)
	ComputeSocialSentimentFromRaw(ctx context.Context, date time.Time) (int64, error)
	ComputeNewsSentimentFromRaw(ctx context.Context, date time.Time) (int64, error)
	ComputeSearchInterestFromRaw(ctx context.Context, date time.Time) (int64, error)
	ComputeDailySnapshots(ctx context.Context, date time.Time, assets []string) (int64, error)
	RecordCounts(ctx context.Context) (map[string]int64, error)
}

type OHLCFetcher interface {
	FetchHourlyOHLC(ctx context.Context, asset string, days int) ([]domain.OHLCBar, error)
	FetchMarketMetrics(ctx context.Context) ([]domain.MarketMetrics, error)
}

type IndexFetcher interface {
	FetchHistory(ctx context.Context, limit int) ([]domain.SentimentIndexPoint, error)
}

type ETFFetcher interface {
	FetchFlows(ctx context.Context, days int) ([]domain.ETFFlow, error)
}

type DerivativesFetcher interface {
	FetchFundingRates(ctx context.Context, assets []string) ([]domain.FundingRate, []error)
	FetchOpenInterest(ctx context.Context, assets []string) ([]domain.OpenInterest, []error)
}

type RedditFetcher interface {
	FetchTopPosts(ctx context.Context, subreddit, timeFilter string, limit int) ([]domain.SocialPost, error)
}

type TwitterFetcher interface {
	FetchRecent(ctx context.Context, since time.Time) ([]domain.SocialPost, error)
}

type NewsFetcher interface {
	FetchArticles(ctx context.Context, from, to time.Time) ([]domain.NewsArticle, error)
}

type TrendsFetcher interface {
	FetchInterest(ctx context.Context, keyword string, days int) ([]domain.SearchTrendPoint, error)
}

// Backup mirrors successfully stored batches to CSV, best effort.
type Backup interface {
	WriteOHLC(bars []domain.OHLCBar) error
	WriteSentimentIndex(points []domain.SentimentIndexPoint) error
	WriteETFFlows(flows []domain.ETFFlow) error
	CleanupOldBackups(keepDays int) (int, error)
}

// Windows are the per-stage trailing fetch windows in days.
type Windows struct {
	OHLC      int
	Sentiment int
	ETF       int
	NLP       int
	Trends    int
	Snapshots int
}

func windowsFor(mode string) Windows {
	if mode == domain.ModeBackfill {
		return Windows{OHLC: 14, Sentiment: 30, ETF: 300, NLP: 7, Trends: 7, Snapshots: 7}
	}
	return Windows{OHLC: 14, Sentiment: 7, ETF: 7, NLP: 1, Trends: 7, Snapshots: 7}
}

// Pipeline runs the ingestion stages in a fixed order. Every fetcher
// except coingecko and feargreed is optional: a nil adapter skips its
// stage with success.
type Pipeline struct {
	tracer trace.Tracer
	store  Store
	scorer *sentiment.Analyzer

	coingecko   OHLCFetcher
	fearGreed   IndexFetcher
	etfFlows    ETFFetcher
	derivatives DerivativesFetcher
	reddit      RedditFetcher
	twitter     TwitterFetcher
	news        NewsFetcher
	trends      TrendsFetcher

	backup Backup

	assets     []string
	subreddits []string
	keywords   []string

	now func() time.Time
}

// Options carries the optional adapters and overrides.
type Options struct {
	ETFFlows    ETFFetcher
	Derivatives DerivativesFetcher
	Reddit      RedditFetcher
	Twitter     TwitterFetcher
	News        NewsFetcher
	Trends      TrendsFetcher
	Backup      Backup
	Assets      []string
	Subreddits  []string
	Keywords    []string
}

func New(tracer trace.Tracer, store Store, scorer *sentiment.Analyzer, coingecko OHLCFetcher, fearGreed IndexFetcher, opts Options) *Pipeline {
	if scorer == nil {
		scorer = sentiment.NewAnalyzer(nil, 0)
	}
	assets := opts.Assets
	if len(assets) == 0 {
		assets = domain.TrackedAssets
	}
	subreddits := opts.Subreddits
	if len(subreddits) == 0 {
		subreddits = domain.CryptoSubreddits
	}
	keywords := opts.Keywords
	if len(keywords) == 0 {
		keywords = domain.SearchKeywords
	}
	return &Pipeline{
		tracer:      tracer,
		store:       store,
		scorer:      scorer,
		coingecko:   coingecko,
		fearGreed:   fearGreed,
		etfFlows:    opts.ETFFlows,
		derivatives: opts.Derivatives,
		reddit:      opts.Reddit,
		twitter:     opts.Twitter,
		news:        opts.News,
		trends:      opts.Trends,
		backup:      opts.Backup,
		assets:      assets,
		subreddits:  subreddits,
		keywords:    keywords,
		now:         time.Now,
	}
}

// Run executes every stage in order and assembles the run report.
// Stage failures never abort the run; the next stage always gets its
// chance against whatever data is already stored.
func (p *Pipeline) Run(ctx context.Context, mode string) (domain.RunResult, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.run")
	defer span.End()

	if p.store == nil {
		return domain.RunResult{}, fmt.Errorf("pipeline store is not initialized")
	}
	if mode != domain.ModeBackfill {
		mode = domain.ModeDailySync
	}
	w := windowsFor(mode)

	start := p.now().UTC()
	result := domain.RunResult{Mode: mode, StartedAt: start}

	log.Printf("pipeline: starting %s run", mode)
	result.OHLC = p.ingestOHLC(ctx, w.OHLC)
	result.SentimentIndex = p.ingestSentimentIndex(ctx, w.Sentiment)
	result.ETFFlows = p.ingestETFFlows(ctx, w.ETF)
	result.MarketMetrics = p.ingestMarketMetrics(ctx)
	result.FundingRates = p.ingestFundingRates(ctx)
	result.OpenInterest = p.ingestOpenInterest(ctx)
	result.Social = p.ingestSocial(ctx, w.NLP)
	result.News = p.ingestNews(ctx, w.NLP)
	result.SearchTrends = p.ingestSearchTrends(ctx, w.Trends)
	result.Snapshots = p.computeSnapshots(ctx, w.Snapshots)

	// price history and the market sentiment index are the core feed;
	// everything else degrades to warnings
	result.OverallSuccess = result.OHLC.Success && result.SentimentIndex.Success

	if counts, err := p.store.RecordCounts(ctx); err != nil {
		log.Printf("pipeline: record counts failed: %v", err)
	} else {
		result.RecordCounts = counts
	}

	if p.backup != nil {
		if deleted, err := p.backup.CleanupOldBackups(30); err != nil {
			log.Printf("pipeline: backup cleanup failed: %v", err)
		} else if deleted > 0 {
			log.Printf("pipeline: cleaned up %d old backups", deleted)
		}
	}

	result.Duration = p.now().UTC().Sub(start)
	log.Printf("pipeline: %s run finished in %s (success=%t)", mode, result.Duration.Round(time.Millisecond), result.OverallSuccess)
	return result, nil
}

// Status reports current table counts.
func (p *Pipeline) Status(ctx context.Context) (map[string]int64, error) {
	ctx, span := p.tracer.Start(ctx, "pipeline.status")
	defer span.End()
	return p.store.RecordCounts(ctx)
}
