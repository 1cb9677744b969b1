package aggregate

import (
	"math"
	"strings"
	"testing"
	"time"

	"market-intel/internal/domain"
)

var day = time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)

func ptr(v float64) *float64 { return &v }

func TestEngagementScore(t *testing.T) {
	// (10*1 + 5*2 + 0*3) / 100 = 0.2; log1p(200)*10 ~= 53.03
	got := EngagementScore(10, 5, 0, 100)
	want := math.Round(math.Min(100, math.Log1p(0.2*1000)*10)*100) / 100
	if got != want {
		t.Errorf("EngagementScore = %v, want %v", got, want)
	}
}

func TestEngagementScoreBounds(t *testing.T) {
	if got := EngagementScore(1000000, 1000000, 1000000, 1); got != 100 {
		t.Errorf("expected cap at 100, got %v", got)
	}
	if got := EngagementScore(0, 0, 0, 0); got != 0 {
		t.Errorf("expected 0 for no interactions (views floored), got %v", got)
	}
	if got := EngagementScore(-50, 0, 0, 10); got != 0 {
		t.Errorf("expected 0 for negative rate, got %v", got)
	}
}

func TestExtractKeywords(t *testing.T) {
	texts := []string{
		"Bitcoin rally continues https://example.com/x @someone #crypto",
		"bitcoin rally and more bitcoin news",
		"the cat sat",
	}
	got := ExtractKeywords(texts, 10)
	if len(got) == 0 || got[0] != "bitcoin" {
		t.Fatalf("expected bitcoin as top keyword, got %v", got)
	}
	for _, w := range got {
		if len(w) < 4 {
			t.Errorf("short word leaked: %q", w)
		}
		if w == "more" {
			t.Errorf("stop word leaked: %q", w)
		}
		if strings.Contains(w, "http") || strings.Contains(w, "example") {
			t.Errorf("url fragment leaked: %q", w)
		}
	}
}

func TestExtractKeywordsDeterministicTies(t *testing.T) {
	texts := []string{"alpha bravo alpha bravo"}
	a := ExtractKeywords(texts, 2)
	for i := 0; i < 10; i++ {
		b := ExtractKeywords(texts, 2)
		if a[0] != b[0] || a[1] != b[1] {
			t.Fatalf("tie order unstable: %v vs %v", a, b)
		}
	}
}

func redditPost(ts time.Time, sub string, compound float64, label string) domain.SocialPost {
	return domain.SocialPost{
		PostID: "p" + ts.Format("150405") + sub, Platform: "reddit",
		Subreddit: &sub, Title: "bitcoin price talk", Body: "discussion",
		CreatedUTC: ts, Score: 50, NumComments: 10,
		SentimentCompound: compound, SentimentLabel: label,
	}
}

func TestBuildSocialSentimentDailies(t *testing.T) {
	noon := day.Add(12 * time.Hour)
	posts := []domain.SocialPost{
		redditPost(noon, "Bitcoin", 0.5, "positive"),
		redditPost(noon.Add(time.Hour), "Bitcoin", -0.5, "negative"),
		redditPost(noon, "ethereum", 0.0, "neutral"),
		redditPost(day.AddDate(0, 0, 1), "Bitcoin", 0.9, "positive"), // next day, excluded
	}
	got := BuildSocialSentimentDailies(day, posts)
	if len(got) != 2 {
		t.Fatalf("expected 2 platform rows, got %d", len(got))
	}
	btc := got[0]
	if btc.Platform != "reddit_bitcoin" {
		t.Fatalf("unexpected platform key: %q", btc.Platform)
	}
	if btc.MentionsCount != 2 || btc.PositiveMentions != 1 || btc.NegativeMentions != 1 || btc.NeutralMentions != 0 {
		t.Errorf("wrong counts: %+v", btc)
	}
	if btc.SentimentScore != 0 {
		t.Errorf("mean compound = %v, want 0", btc.SentimentScore)
	}
	if btc.AsOfDate != day {
		t.Errorf("wrong date: %v", btc.AsOfDate)
	}
	if got[1].Platform != "reddit_ethereum" || got[1].NeutralMentions != 1 {
		t.Errorf("wrong second row: %+v", got[1])
	}
}

func TestBuildSocialSentimentDailiesTwitterViews(t *testing.T) {
	noon := day.Add(12 * time.Hour)
	posts := []domain.SocialPost{{
		PostID: "tw_1", Platform: "twitter", Title: "crypto talk",
		CreatedUTC: noon, Score: 10, NumComments: 5, Shares: 20,
		SentimentLabel: "neutral",
	}}
	got := BuildSocialSentimentDailies(day, posts)
	if len(got) != 1 || got[0].Platform != "twitter" {
		t.Fatalf("unexpected rows: %+v", got)
	}
	// twitter views are estimated as retweets+likes+replies, not score*10
	want := round2(EngagementScore(10, 5, 20, 20+10+5))
	if got[0].EngagementScore != want {
		t.Errorf("engagement = %v, want %v", got[0].EngagementScore, want)
	}
}

func TestBuildSocialSentimentDailiesEmpty(t *testing.T) {
	if got := BuildSocialSentimentDailies(day, nil); len(got) != 0 {
		t.Errorf("expected no rows, got %v", got)
	}
}

func article(ts time.Time, source string, compound float64) domain.NewsArticle {
	return domain.NewsArticle{
		URL: "https://news/" + ts.Format("150405") + source, Title: "crypto market update",
		Source: source, PublishedAt: ts, SentimentCompound: compound,
	}
}

func TestBuildNewsSentimentDaily(t *testing.T) {
	noon := day.Add(12 * time.Hour)
	articles := []domain.NewsArticle{
		article(noon, "CoinDesk", 0.6),
		article(noon, "CoinDesk", 0.05),
		article(noon, "Reuters", -0.05),
		article(noon, "Unknown", 0.0),
	}
	got := BuildNewsSentimentDaily(day, articles)
	if got == nil {
		t.Fatal("expected a row")
	}
	if got.ArticleCount != 4 {
		t.Errorf("count = %d", got.ArticleCount)
	}
	if got.PositivePct != 50 || got.NegativePct != 25 || got.NeutralPct != 25 {
		t.Errorf("pcts = %v/%v/%v", got.PositivePct, got.NegativePct, got.NeutralPct)
	}
	if got.TopSources != "CoinDesk,Reuters" {
		t.Errorf("top sources = %q (Unknown must be excluded)", got.TopSources)
	}
}

func TestBuildNewsSentimentDailyEmpty(t *testing.T) {
	if got := BuildNewsSentimentDaily(day, nil); got != nil {
		t.Errorf("expected nil for empty day, got %+v", got)
	}
	other := []domain.NewsArticle{article(day.AddDate(0, 0, -1), "X", 0.2)}
	if got := BuildNewsSentimentDaily(day, other); got != nil {
		t.Errorf("expected nil when all articles are off-day, got %+v", got)
	}
}

func TestBuildSearchInterestDailies(t *testing.T) {
	points := []domain.SearchTrendPoint{
		{TsUTC: day.Add(3 * time.Hour), Keyword: "bitcoin", InterestScore: 80},
		{TsUTC: day.Add(9 * time.Hour), Keyword: "bitcoin", InterestScore: 60},
		{TsUTC: day.Add(3 * time.Hour), Keyword: "ethereum", InterestScore: 40},
	}
	prev := map[string]float64{"bitcoin": 50}
	got := BuildSearchInterestDailies(day, points, prev)
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	btc := got[0]
	if btc.Keyword != "bitcoin" || btc.InterestScore != 70 {
		t.Fatalf("unexpected row: %+v", btc)
	}
	if btc.InterestChangePct == nil || *btc.InterestChangePct != 40 {
		t.Errorf("delta = %v, want 40", btc.InterestChangePct)
	}
	if got[1].Keyword != "ethereum" || got[1].InterestChangePct != nil {
		t.Errorf("expected nil delta without prior day: %+v", got[1])
	}
}

func TestBuildSearchInterestDailiesZeroPrev(t *testing.T) {
	points := []domain.SearchTrendPoint{{TsUTC: day, Keyword: "bitcoin", InterestScore: 10}}
	got := BuildSearchInterestDailies(day, points, map[string]float64{"bitcoin": 0})
	if got[0].InterestChangePct != nil {
		t.Errorf("expected nil delta for zero prior score, got %v", *got[0].InterestChangePct)
	}
}

func dayBars(n int, closes func(i int) float64) []domain.OHLCBar {
	bars := make([]domain.OHLCBar, n)
	for i := 0; i < n; i++ {
		ts := day.Add(time.Duration(i) * time.Hour)
		bars[i] = domain.OHLCBar{
			Asset: "BTC", TsUTC: ts, Close: closes(i),
			Session: domain.ClassifySession(ts.Hour()),
		}
	}
	return bars
}

func TestBuildDailySnapshotNoBars(t *testing.T) {
	if got := BuildDailySnapshot(day, "BTC", SnapshotInputs{}); got != nil {
		t.Errorf("expected nil without bars, got %+v", got)
	}
}

func TestBuildDailySnapshotPriceChange(t *testing.T) {
	bars := dayBars(25, func(i int) float64 { return 100 + float64(i) }) // closes 100..124
	snap := BuildDailySnapshot(day, "BTC", SnapshotInputs{DayBars: bars})
	if snap == nil {
		t.Fatal("expected row")
	}
	if *snap.PriceCloseUSD != 124 {
		t.Errorf("close = %v", *snap.PriceCloseUSD)
	}
	// lag 24 bars back from the last bar: close 100 -> +24%
	if snap.PriceChg24hPct == nil || *snap.PriceChg24hPct != 24 {
		t.Errorf("chg = %v, want 24", snap.PriceChg24hPct)
	}
}

func TestBuildDailySnapshotShortDayNoChange(t *testing.T) {
	bars := dayBars(24, func(i int) float64 { return 100 })
	snap := BuildDailySnapshot(day, "BTC", SnapshotInputs{DayBars: bars})
	if snap.PriceChg24hPct != nil {
		t.Errorf("expected nil change with fewer than 25 bars, got %v", *snap.PriceChg24hPct)
	}
	if snap.PriceCloseUSD == nil || *snap.PriceCloseUSD != 100 {
		t.Errorf("close missing: %+v", snap)
	}
}

func TestBuildDailySnapshotVolatility(t *testing.T) {
	bars := dayBars(2, func(i int) float64 { return 100 })

	constant := BuildDailySnapshot(day, "BTC", SnapshotInputs{
		DayBars: bars, WindowCloses: []float64{100, 100, 100},
	})
	if constant.RealizedVol7dPct == nil || *constant.RealizedVol7dPct != 0 {
		t.Errorf("constant series vol = %v, want 0", constant.RealizedVol7dPct)
	}

	varied := BuildDailySnapshot(day, "BTC", SnapshotInputs{
		DayBars: bars, WindowCloses: []float64{90, 110},
	})
	// mean 100, population stddev 10 -> CoV 10%
	if varied.RealizedVol7dPct == nil || math.Abs(*varied.RealizedVol7dPct-10) > 1e-9 {
		t.Errorf("vol = %v, want 10", varied.RealizedVol7dPct)
	}

	empty := BuildDailySnapshot(day, "BTC", SnapshotInputs{DayBars: bars})
	if empty.RealizedVol7dPct != nil {
		t.Errorf("expected nil vol without window closes")
	}
}

func TestBuildDailySnapshotLeftJoin(t *testing.T) {
	bars := dayBars(3, func(i int) float64 { return 100 })
	snap := BuildDailySnapshot(day, "BTC", SnapshotInputs{DayBars: bars})
	if snap.FNGValue != nil || snap.ETFNetFlowUSD != nil || snap.Volume24hUSD != nil ||
		snap.AvgFundingRatePct != nil || snap.OpenInterestUSD != nil {
		t.Errorf("missing sources must stay nil: %+v", snap)
	}

	idx := &domain.SentimentIndexPoint{AsOfDate: day, Value: 72, Classification: "Greed"}
	full := BuildDailySnapshot(day, "BTC", SnapshotInputs{
		DayBars: bars, Index: idx, ETFNetFlow: ptr(1.5e8),
		Metrics:    &domain.MarketMetrics{Volume24hUSD: ptr(2e10), MarketCapUSD: ptr(1e12), BTCDominancePct: ptr(55)},
		AvgFunding: ptr(0.01), OpenInterest: ptr(3e10),
	})
	if *full.FNGValue != 72 || *full.FNGClassification != "Greed" {
		t.Errorf("index not joined: %+v", full)
	}
	if *full.ETFNetFlowUSD != 1.5e8 || *full.Volume24hUSD != 2e10 || *full.BTCDominancePct != 55 {
		t.Errorf("metrics not joined: %+v", full)
	}
	if *full.AvgFundingRatePct != 0.01 || *full.OpenInterestUSD != 3e10 {
		t.Errorf("derivatives not joined: %+v", full)
	}
}

func TestBuildDailySnapshotDominantSession(t *testing.T) {
	// 2 ASIA bars, 5 EUROPE bars, 1 US bar
	var bars []domain.OHLCBar
	for _, h := range []int{0, 1, 8, 9, 10, 11, 12, 16} {
		ts := day.Add(time.Duration(h) * time.Hour)
		bars = append(bars, domain.OHLCBar{Asset: "BTC", TsUTC: ts, Close: 100, Session: domain.ClassifySession(h)})
	}
	snap := BuildDailySnapshot(day, "BTC", SnapshotInputs{DayBars: bars})
	if snap.DominantSession == nil || *snap.DominantSession != domain.SessionEurope {
		t.Errorf("dominant session = %v, want EUROPE", snap.DominantSession)
	}
}
