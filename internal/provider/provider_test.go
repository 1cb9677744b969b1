package provider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func jsonResponse(body string) *http.Response {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func noopTracer() trace.Tracer {
	return trace.NewNoopTracerProvider().Tracer("test")
}

func TestFearGreedFetchHistory(t *testing.T) {
	p := NewFearGreedProvider(noopTracer())
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/fng/" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		body := `{"data":[
			{"value":"63","value_classification":"Greed","timestamp":"1771009800"},
			{"value":"25","value_classification":"Extreme Fear","timestamp":"1770923400"}
		]}`
		return jsonResponse(body), nil
	})}

	points, err := p.FetchHistory(context.Background(), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}
	if points[0].Value != 63 || points[0].Classification != "Greed" {
		t.Fatalf("unexpected point: %+v", points[0])
	}
	want := domain.DayOf(time.Unix(1771009800, 0))
	if !points[0].AsOfDate.Equal(want) {
		t.Fatalf("expected midnight date %v, got %v", want, points[0].AsOfDate)
	}
	if points[1].Classification != "Extreme Fear" {
		t.Fatalf("classification must be stored as given: %+v", points[1])
	}
}

func TestCoinGeckoFetchHourlyOHLC(t *testing.T) {
	p := NewCoinGeckoProvider(noopTracer())
	p.baseURL = "https://example.com"
	base := time.Date(2026, 8, 20, 5, 0, 0, 0, time.UTC)
	// three points in one hour, one in the next
	body := `{"prices":[
		[` + msStr(base) + `,100],
		[` + msStr(base.Add(20*time.Minute)) + `,110],
		[` + msStr(base.Add(40*time.Minute)) + `,95],
		[` + msStr(base.Add(time.Hour)) + `,105]
	]}`
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/coins/bitcoin/market_chart" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		return jsonResponse(body), nil
	})}

	bars, err := p.FetchHourlyOHLC(context.Background(), "BTC", 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("expected 2 hourly bars, got %d", len(bars))
	}
	b := bars[0]
	if b.Open != 100 || b.High != 110 || b.Low != 95 || b.Close != 95 {
		t.Fatalf("unexpected bar: %+v", b)
	}
	if b.Session != domain.SessionAsia {
		t.Fatalf("05:00 UTC bar should be ASIA, got %s", b.Session)
	}
	if !b.TsUTC.Equal(base) {
		t.Fatalf("bar not floored to hour: %v", b.TsUTC)
	}
}

func TestCoinGeckoRejectsUnknownAsset(t *testing.T) {
	p := NewCoinGeckoProvider(noopTracer())
	if _, err := p.FetchHourlyOHLC(context.Background(), "DOGE", 1); err == nil {
		t.Fatal("expected error for untracked asset")
	}
}

func TestRedditFetchTopPosts(t *testing.T) {
	p := NewRedditProvider(noopTracer())
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/r/Bitcoin/top.json" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if req.Header.Get("User-Agent") == "" {
			t.Fatal("user agent is required")
		}
		body := `{"data":{"children":[
			{"data":{"id":"abc","subreddit":"Bitcoin","title":"Price talk","selftext":"body text","author":"u1","created_utc":1771009800,"score":42,"upvote_ratio":0.91,"num_comments":7,"permalink":"/r/Bitcoin/abc"}},
			{"data":{"id":"","title":"dropped"}}
		]}}`
		return jsonResponse(body), nil
	})}

	posts, err := p.FetchTopPosts(context.Background(), "Bitcoin", "day", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(posts) != 1 {
		t.Fatalf("expected 1 post (empty id dropped), got %d", len(posts))
	}
	post := posts[0]
	if post.PostID != "abc" || post.Platform != "reddit" || *post.Subreddit != "Bitcoin" {
		t.Fatalf("unexpected post: %+v", post)
	}
	if post.Score != 42 || post.NumComments != 7 || *post.UpvoteRatio != 0.91 {
		t.Fatalf("metrics wrong: %+v", post)
	}
	if post.SentimentCompound != 0 || post.SentimentLabel != "" {
		t.Fatalf("provider must not score sentiment: %+v", post)
	}
}

func TestBinanceFetchFundingRates(t *testing.T) {
	p := NewBinanceFuturesProvider(noopTracer())
	p.baseURL = "https://example.com"
	p.client = &http.Client{Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/fapi/v1/premiumIndex" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		body := `{"lastFundingRate":"0.0001","markPrice":"97000.5","time":1771009800000}`
		return jsonResponse(body), nil
	})}

	rates, errs := p.FetchFundingRates(context.Background(), []string{"BTC"})
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(rates))
	}
	r := rates[0]
	if r.FundingRatePct != 0.01 {
		t.Fatalf("funding rate pct = %v, want 0.01", r.FundingRatePct)
	}
	if r.MarkPrice == nil || *r.MarkPrice != 97000.5 {
		t.Fatalf("mark price wrong: %+v", r)
	}
	if r.Source != "BINANCE" || r.FundingIntervalHours != 8 {
		t.Fatalf("unexpected rate: %+v", r)
	}
}

func TestBinanceUnknownAssetCollectsError(t *testing.T) {
	p := NewBinanceFuturesProvider(noopTracer())
	rates, errs := p.FetchFundingRates(context.Background(), []string{"DOGE"})
	if len(rates) != 0 || len(errs) != 1 {
		t.Fatalf("expected only an error, got %v / %v", rates, errs)
	}
}

func TestProvidersRequireCredentials(t *testing.T) {
	if p := NewNewsProvider("", noopTracer()); p != nil {
		t.Error("news provider must be nil without an API key")
	}
	if p := NewETFFlowsProvider("  ", noopTracer()); p != nil {
		t.Error("etf flows provider must be nil without an API key")
	}
	if p := NewTwitterProvider("", noopTracer()); p != nil {
		t.Error("twitter provider must be nil without a bearer token")
	}
}

func TestTrendsStripPrefix(t *testing.T) {
	raw := []byte(")]}'\n{\"ok\":true}")
	got := string(stripPrefix(raw))
	if got != `{"ok":true}` {
		t.Fatalf("prefix not stripped: %q", got)
	}
	plain := []byte(`{"ok":true}`)
	if string(stripPrefix(plain)) != `{"ok":true}` {
		t.Fatal("plain json must pass through")
	}
}

func TestTrendsTimeframeFor(t *testing.T) {
	if tf := timeframeFor(7); tf != "now 7-d" {
		t.Errorf("7d timeframe = %q", tf)
	}
	if tf := timeframeFor(30); tf != "today 1-m" {
		t.Errorf("30d timeframe = %q", tf)
	}
	if tf := timeframeFor(300); tf != "today 3-m" {
		t.Errorf("300d timeframe = %q", tf)
	}
}

func TestSanitizeText(t *testing.T) {
	got := sanitizeText("  line one\nline\ttwo  ", 0)
	if got != "line one line two" {
		t.Fatalf("sanitizeText = %q", got)
	}
	if got := sanitizeText("abcdef", 3); got != "abc" {
		t.Fatalf("truncation = %q", got)
	}
}

func msStr(t time.Time) string {
	return strconv.FormatInt(t.UnixMilli(), 10)
}
