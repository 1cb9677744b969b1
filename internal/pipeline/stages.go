package pipeline

import (
	"context"
	"log"
	"strings"
	"time"

	"market-intel/internal/domain"
)

func (p *Pipeline) ingestOHLC(ctx context.Context, fetchDays int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.ohlc")
	defer span.End()

	stage := domain.StageResult{Name: "ohlc"}
	if p.coingecko == nil {
		return domain.SkippedStage(stage.Name)
	}

	var bars []domain.OHLCBar
	for _, asset := range p.assets {
		assetBars, err := p.coingecko.FetchHourlyOHLC(ctx, asset, fetchDays)
		if err != nil {
			stage.Errors = append(stage.Errors, asset+": "+err.Error())
			continue
		}
		bars = append(bars, assetBars...)
	}

	count, err := p.store.UpsertOHLCBars(ctx, bars)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.Records = count
	stage.Success = true
	p.backupOHLC(bars)
	return stage
}

func (p *Pipeline) ingestSentimentIndex(ctx context.Context, days int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.sentiment-index")
	defer span.End()

	stage := domain.StageResult{Name: "sentiment-index"}
	if p.fearGreed == nil {
		return domain.SkippedStage(stage.Name)
	}

	points, err := p.fearGreed.FetchHistory(ctx, days)
	if err != nil {
		stage.Errors = append(stage.Errors, "fetch: "+err.Error())
		return stage
	}
	count, err := p.store.UpsertSentimentIndex(ctx, points)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.Records = count
	stage.Success = true
	p.backupSentimentIndex(points)
	return stage
}

func (p *Pipeline) ingestETFFlows(ctx context.Context, days int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.etf-flows")
	defer span.End()

	stage := domain.StageResult{Name: "etf-flows"}
	if p.etfFlows == nil {
		return domain.SkippedStage(stage.Name)
	}

	flows, err := p.etfFlows.FetchFlows(ctx, days)
	if err != nil {
		stage.Errors = append(stage.Errors, "fetch: "+err.Error())
		return stage
	}
	count, err := p.store.UpsertETFFlows(ctx, flows)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.Records = count
	stage.Success = true
	p.backupETFFlows(flows)
	return stage
}

func (p *Pipeline) ingestMarketMetrics(ctx context.Context) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.market-metrics")
	defer span.End()

	stage := domain.StageResult{Name: "market-metrics"}
	if p.coingecko == nil {
		return domain.SkippedStage(stage.Name)
	}

	metrics, err := p.coingecko.FetchMarketMetrics(ctx)
	if err != nil {
		stage.Errors = append(stage.Errors, "fetch: "+err.Error())
		return stage
	}
	count, err := p.store.UpsertMarketMetrics(ctx, metrics)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.Records = count
	stage.Success = true
	return stage
}

func (p *Pipeline) ingestFundingRates(ctx context.Context) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.funding-rates")
	defer span.End()

	stage := domain.StageResult{Name: "funding-rates"}
	if p.derivatives == nil {
		return domain.SkippedStage(stage.Name)
	}

	rates, errs := p.derivatives.FetchFundingRates(ctx, p.assets)
	for _, err := range errs {
		stage.Errors = append(stage.Errors, "fetch: "+err.Error())
	}
	count, err := p.store.UpsertFundingRates(ctx, rates)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.Records = count
	stage.Success = true
	return stage
}

func (p *Pipeline) ingestOpenInterest(ctx context.Context) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.open-interest")
	defer span.End()

	stage := domain.StageResult{Name: "open-interest"}
	if p.derivatives == nil {
		return domain.SkippedStage(stage.Name)
	}

	readings, errs := p.derivatives.FetchOpenInterest(ctx, p.assets)
	for _, err := range errs {
		stage.Errors = append(stage.Errors, "fetch: "+err.Error())
	}
	count, err := p.store.UpsertOpenInterest(ctx, readings)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.Records = count
	stage.Success = true
	return stage
}

func (p *Pipeline) ingestSocial(ctx context.Context, days int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.social")
	defer span.End()

	stage := domain.StageResult{Name: "social"}
	if p.reddit == nil && p.twitter == nil {
		return domain.SkippedStage(stage.Name)
	}

	var posts []domain.SocialPost
	if p.reddit != nil {
		filter := timeFilterFor(days)
		for _, sub := range p.subreddits {
			subPosts, err := p.reddit.FetchTopPosts(ctx, sub, filter, 25)
			if err != nil {
				stage.Errors = append(stage.Errors, "r/"+sub+": "+err.Error())
				continue
			}
			posts = append(posts, subPosts...)
		}
	}
	if p.twitter != nil {
		since := p.now().UTC().AddDate(0, 0, -days)
		tweets, err := p.twitter.FetchRecent(ctx, since)
		if err != nil {
			stage.Errors = append(stage.Errors, "twitter: "+err.Error())
		} else {
			posts = append(posts, tweets...)
		}
	}

	p.scoreSocialPosts(ctx, posts)

	raw, err := p.store.UpsertSocialPosts(ctx, posts)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.RawRecords = raw

	stage.Success = true
	for _, date := range p.windowDates(days) {
		agg, err := p.store.ComputeSocialSentimentFromRaw(ctx, date)
		if err != nil {
			stage.Errors = append(stage.Errors, "aggregate "+domain.DateString(date)+": "+err.Error())
			stage.Success = false
			continue
		}
		stage.AggregatedRecords += agg
	}
	stage.Records = stage.RawRecords + stage.AggregatedRecords
	return stage
}

func (p *Pipeline) ingestNews(ctx context.Context, days int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.news")
	defer span.End()

	stage := domain.StageResult{Name: "news"}
	if p.news == nil {
		return domain.SkippedStage(stage.Name)
	}

	to := p.now().UTC()
	articles, err := p.news.FetchArticles(ctx, to.AddDate(0, 0, -days), to)
	if err != nil {
		stage.Errors = append(stage.Errors, "fetch: "+err.Error())
		return stage
	}

	p.scoreNewsArticles(ctx, articles)

	raw, err := p.store.UpsertNewsArticles(ctx, articles)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.RawRecords = raw

	stage.Success = true
	for _, date := range p.windowDates(days) {
		agg, err := p.store.ComputeNewsSentimentFromRaw(ctx, date)
		if err != nil {
			stage.Errors = append(stage.Errors, "aggregate "+domain.DateString(date)+": "+err.Error())
			stage.Success = false
			continue
		}
		stage.AggregatedRecords += agg
	}
	stage.Records = stage.RawRecords + stage.AggregatedRecords
	return stage
}

func (p *Pipeline) ingestSearchTrends(ctx context.Context, days int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.search-trends")
	defer span.End()

	stage := domain.StageResult{Name: "search-trends"}
	if p.trends == nil {
		return domain.SkippedStage(stage.Name)
	}

	var points []domain.SearchTrendPoint
	for _, keyword := range p.keywords {
		kwPoints, err := p.trends.FetchInterest(ctx, keyword, days)
		if err != nil {
			stage.Errors = append(stage.Errors, keyword+": "+err.Error())
			continue
		}
		points = append(points, kwPoints...)
	}

	raw, err := p.store.UpsertSearchTrends(ctx, points)
	if err != nil {
		stage.Errors = append(stage.Errors, "store: "+err.Error())
		return stage
	}
	stage.RawRecords = raw

	// oldest day first so each day-over-day delta sees its predecessor
	stage.Success = true
	for _, date := range p.windowDates(days) {
		agg, err := p.store.ComputeSearchInterestFromRaw(ctx, date)
		if err != nil {
			stage.Errors = append(stage.Errors, "aggregate "+domain.DateString(date)+": "+err.Error())
			stage.Success = false
			continue
		}
		stage.AggregatedRecords += agg
	}
	stage.Records = stage.RawRecords + stage.AggregatedRecords
	return stage
}

func (p *Pipeline) computeSnapshots(ctx context.Context, days int) domain.StageResult {
	ctx, span := p.tracer.Start(ctx, "pipeline.snapshots")
	defer span.End()

	stage := domain.StageResult{Name: "snapshots", Success: true}
	for _, date := range p.windowDates(days) {
		count, err := p.store.ComputeDailySnapshots(ctx, date, p.assets)
		if err != nil {
			stage.Errors = append(stage.Errors, domain.DateString(date)+": "+err.Error())
			stage.Success = false
			continue
		}
		stage.Records += count
	}
	return stage
}

// scoreSocialPosts fills the sentiment tuple on each post in place.
func (p *Pipeline) scoreSocialPosts(ctx context.Context, posts []domain.SocialPost) {
	if len(posts) == 0 {
		return
	}
	texts := make([]string, len(posts))
	for i, post := range posts {
		texts[i] = strings.TrimSpace(post.Title + " " + post.Body)
	}
	scores := p.scorer.ScoreTexts(ctx, texts)
	for i := range posts {
		posts[i].SentimentCompound = scores[i].Compound
		posts[i].SentimentPos = scores[i].Positive
		posts[i].SentimentNeg = scores[i].Negative
		posts[i].SentimentNeu = scores[i].Neutral
		posts[i].SentimentLabel = scores[i].Label
	}
}

func (p *Pipeline) scoreNewsArticles(ctx context.Context, articles []domain.NewsArticle) {
	if len(articles) == 0 {
		return
	}
	texts := make([]string, len(articles))
	for i, a := range articles {
		texts[i] = strings.TrimSpace(a.Title + " " + a.Description)
	}
	scores := p.scorer.ScoreTexts(ctx, texts)
	for i := range articles {
		s := scores[i]
		articles[i].SentimentCompound = s.Compound
		articles[i].SentimentLabel = s.Label
		articles[i].SentimentConfidence = s.Confidence
		pos, neg, neu := s.Positive, s.Negative, s.Neutral
		articles[i].PositiveProb = &pos
		articles[i].NegativeProb = &neg
		articles[i].NeutralProb = &neu
	}
}

// windowDates lists the trailing days days of UTC dates, oldest first,
// ending at today.
func (p *Pipeline) windowDates(days int) []time.Time {
	if days < 1 {
		days = 1
	}
	today := domain.DayOf(p.now().UTC())
	dates := make([]time.Time, 0, days)
	for i := days - 1; i >= 0; i-- {
		dates = append(dates, today.AddDate(0, 0, -i))
	}
	return dates
}

// timeFilterFor maps a trailing window to reddit's top-post filter.
func timeFilterFor(days int) string {
	switch {
	case days <= 1:
		return "day"
	case days <= 7:
		return "week"
	default:
		return "month"
	}
}

func (p *Pipeline) backupOHLC(bars []domain.OHLCBar) {
	if p.backup == nil || len(bars) == 0 {
		return
	}
	if err := p.backup.WriteOHLC(bars); err != nil {
		log.Printf("pipeline: ohlc backup failed: %v", err)
	}
}

func (p *Pipeline) backupSentimentIndex(points []domain.SentimentIndexPoint) {
	if p.backup == nil || len(points) == 0 {
		return
	}
	if err := p.backup.WriteSentimentIndex(points); err != nil {
		log.Printf("pipeline: sentiment index backup failed: %v", err)
	}
}

func (p *Pipeline) backupETFFlows(flows []domain.ETFFlow) {
	if p.backup == nil || len(flows) == 0 {
		return
	}
	if err := p.backup.WriteETFFlows(flows); err != nil {
		log.Printf("pipeline: etf flows backup failed: %v", err)
	}
}
