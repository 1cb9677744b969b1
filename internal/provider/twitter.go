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

const (
	twitterBaseURL      = "https://api.twitter.com/2"
	defaultTwitterQuery = "(bitcoin OR ethereum OR crypto) -is:retweet lang:en"
)

// TwitterProvider fetches recent tweets matching the crypto query.
// Requires a bearer token; without one the stage is skipped upstream.
type TwitterProvider struct {
	client      *http.Client
	baseURL     string
	bearerToken string
	tracer      trace.Tracer
	limiter     *RateLimiter
}

func NewTwitterProvider(bearerToken string, tracer trace.Tracer) *TwitterProvider {
	bearerToken = strings.TrimSpace(bearerToken)
	if bearerToken == "" {
		return nil
	}
	return &TwitterProvider{
		client:      &http.Client{Timeout: 20 * time.Second},
		baseURL:     twitterBaseURL,
		bearerToken: bearerToken,
		tracer:      tracer,
		limiter:     NewRateLimiter(15, 5*time.Second),
	}
}

// FetchRecent fetches up to 100 recent tweets since the given time.
// Sentiment fields are left zeroed for the pipeline to score.
func (p *TwitterProvider) FetchRecent(ctx context.Context, since time.Time) ([]domain.SocialPost, error) {
	_, span := p.tracer.Start(ctx, "twitter.fetch-recent")
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("query", defaultTwitterQuery)
	q.Set("max_results", "100")
	q.Set("tweet.fields", "created_at,public_metrics,author_id")
	if !since.IsZero() {
		q.Set("start_time", since.UTC().Format(time.RFC3339))
	}

	u := strings.TrimRight(p.baseURL, "/") + "/tweets/search/recent?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.bearerToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("twitter API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []struct {
			ID            string `json:"id"`
			Text          string `json:"text"`
			AuthorID      string `json:"author_id"`
			CreatedAt     string `json:"created_at"`
			PublicMetrics struct {
				LikeCount    int `json:"like_count"`
				ReplyCount   int `json:"reply_count"`
				RetweetCount int `json:"retweet_count"`
			} `json:"public_metrics"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode twitter response: %w", err)
	}

	posts := make([]domain.SocialPost, 0, len(payload.Data))
	for _, row := range payload.Data {
		if row.ID == "" || strings.TrimSpace(row.Text) == "" {
			continue
		}
		createdAt, err := time.Parse(time.RFC3339, row.CreatedAt)
		if err != nil {
			continue
		}
		posts = append(posts, domain.SocialPost{
			PostID:      "tw_" + row.ID,
			Platform:    "twitter",
			Title:       sanitizeText(row.Text, 300),
			Author:      row.AuthorID,
			CreatedUTC:  createdAt.UTC(),
			Score:       row.PublicMetrics.LikeCount,
			NumComments: row.PublicMetrics.ReplyCount,
			Shares:      row.PublicMetrics.RetweetCount,
			URL:         "https://twitter.com/i/web/status/" + row.ID,
		})
	}
	return posts, nil
}
