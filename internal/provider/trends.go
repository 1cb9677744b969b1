package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const trendsBaseURL = "https://trends.google.com/trends/api"

// TrendsProvider fetches search interest from the Google Trends widget
// API. The API is unofficial: an explore call issues a widget token,
// then the interest-over-time widget returns the series. Responses are
// prefixed with an anti-JSON-hijacking garbage line that gets stripped
// before decoding.
type TrendsProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewTrendsProvider(tracer trace.Tracer) *TrendsProvider {
	return &TrendsProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: trendsBaseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(10, 6*time.Second),
	}
}

// FetchInterest fetches daily interest points for one keyword over the
// trailing window.
func (p *TrendsProvider) FetchInterest(ctx context.Context, keyword string, days int) ([]domain.SearchTrendPoint, error) {
	_, span := p.tracer.Start(ctx, "trends.fetch-interest")
	defer span.End()

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("keyword is required")
	}
	timeframe := timeframeFor(days)

	token, req, err := p.exploreWidget(ctx, keyword, timeframe)
	if err != nil {
		return nil, fmt.Errorf("explore %s: %w", keyword, err)
	}
	return p.fetchTimeline(ctx, keyword, timeframe, token, req)
}

func timeframeFor(days int) string {
	switch {
	case days <= 7:
		return "now 7-d"
	case days <= 30:
		return "today 1-m"
	default:
		return "today 3-m"
	}
}

func (p *TrendsProvider) exploreWidget(ctx context.Context, keyword, timeframe string) (token, request string, err error) {
	exploreReq, _ := json.Marshal(map[string]any{
		"comparisonItem": []map[string]string{
			{"keyword": keyword, "geo": "", "time": timeframe},
		},
		"category": 0,
		"property": "",
	})
	q := url.Values{}
	q.Set("hl", "en-US")
	q.Set("tz", "0")
	q.Set("req", string(exploreReq))

	body, err := p.doRequest(ctx, p.baseURL+"/explore?"+q.Encode())
	if err != nil {
		return "", "", err
	}

	var payload struct {
		Widgets []struct {
			ID      string          `json:"id"`
			Token   string          `json:"token"`
			Request json.RawMessage `json:"request"`
		} `json:"widgets"`
	}
	if err := json.Unmarshal(stripPrefix(body), &payload); err != nil {
		return "", "", fmt.Errorf("decode explore response: %w", err)
	}
	for _, w := range payload.Widgets {
		if w.ID == "TIMESERIES" {
			return w.Token, string(w.Request), nil
		}
	}
	return "", "", fmt.Errorf("no timeseries widget in explore response")
}

func (p *TrendsProvider) fetchTimeline(ctx context.Context, keyword, timeframe, token, request string) ([]domain.SearchTrendPoint, error) {
	q := url.Values{}
	q.Set("hl", "en-US")
	q.Set("tz", "0")
	q.Set("token", token)
	q.Set("req", request)

	body, err := p.doRequest(ctx, p.baseURL+"/widgetdata/multiline?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("fetch timeline: %w", err)
	}

	var payload struct {
		Default struct {
			TimelineData []struct {
				Time  string `json:"time"`
				Value []int  `json:"value"`
			} `json:"timelineData"`
		} `json:"default"`
	}
	if err := json.Unmarshal(stripPrefix(body), &payload); err != nil {
		return nil, fmt.Errorf("decode timeline response: %w", err)
	}

	points := make([]domain.SearchTrendPoint, 0, len(payload.Default.TimelineData))
	for _, row := range payload.Default.TimelineData {
		if len(row.Value) == 0 {
			continue
		}
		var epoch int64
		if _, err := fmt.Sscanf(row.Time, "%d", &epoch); err != nil {
			continue
		}
		points = append(points, domain.SearchTrendPoint{
			TsUTC:         time.Unix(epoch, 0).UTC(),
			Keyword:       keyword,
			InterestScore: float64(row.Value[0]),
			Geo:           "",
			Timeframe:     timeframe,
		})
	}
	return points, nil
}

// stripPrefix drops the ")]}'" guard line Google prepends to widget
// responses.
func stripPrefix(body []byte) []byte {
	s := string(body)
	if idx := strings.IndexAny(s, "{["); idx > 0 {
		s = s[idx:]
	}
	return []byte(s)
}

func (p *TrendsProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("trends API error %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
