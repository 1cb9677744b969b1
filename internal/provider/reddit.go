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
	redditBaseURL     = "https://www.reddit.com"
	defaultRedditUA   = "market-intel/1.0 (crypto market data collector)"
	defaultRedditSize = 100
)

// RedditProvider fetches posts from the public JSON listing API.
// Sentiment fields are left zeroed; the pipeline scores posts before
// storing them.
type RedditProvider struct {
	client    *http.Client
	baseURL   string
	userAgent string
	tracer    trace.Tracer
	limiter   *RateLimiter
}

func NewRedditProvider(tracer trace.Tracer) *RedditProvider {
	return &RedditProvider{
		client:    &http.Client{Timeout: 20 * time.Second},
		baseURL:   redditBaseURL,
		userAgent: defaultRedditUA,
		tracer:    tracer,
		limiter:   NewRateLimiter(30, 2*time.Second),
	}
}

// FetchTopPosts fetches the subreddit's top posts for the given time
// filter (day, week, month).
func (p *RedditProvider) FetchTopPosts(ctx context.Context, subreddit, timeFilter string, limit int) ([]domain.SocialPost, error) {
	_, span := p.tracer.Start(ctx, "reddit.fetch-top-posts")
	defer span.End()

	subreddit = strings.TrimSpace(subreddit)
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	if timeFilter == "" {
		timeFilter = "day"
	}
	if limit <= 0 {
		limit = defaultRedditSize
	}
	if limit > 100 {
		limit = 100
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	base := strings.TrimRight(p.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/top.json?t=%s&limit=%d",
		base, url.PathEscape(subreddit), url.QueryEscape(timeFilter), limit)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reddit API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data struct {
			Children []struct {
				Data struct {
					ID          string  `json:"id"`
					Subreddit   string  `json:"subreddit"`
					Title       string  `json:"title"`
					SelfText    string  `json:"selftext"`
					Author      string  `json:"author"`
					CreatedUTC  float64 `json:"created_utc"`
					Score       float64 `json:"score"`
					UpvoteRatio float64 `json:"upvote_ratio"`
					NumComments float64 `json:"num_comments"`
					Permalink   string  `json:"permalink"`
					URL         string  `json:"url"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}

	posts := make([]domain.SocialPost, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		data := row.Data
		if strings.TrimSpace(data.ID) == "" || strings.TrimSpace(data.Title) == "" {
			continue
		}
		sub := data.Subreddit
		if sub == "" {
			sub = subreddit
		}
		ratio := data.UpvoteRatio
		postURL := strings.TrimSpace(data.URL)
		if permalink := strings.TrimSpace(data.Permalink); permalink != "" {
			postURL = base + permalink
		}
		author := strings.TrimSpace(data.Author)
		if author == "" {
			author = "[deleted]"
		}
		posts = append(posts, domain.SocialPost{
			PostID:      data.ID,
			Platform:    "reddit",
			Subreddit:   &sub,
			Title:       sanitizeText(data.Title, 300),
			Body:        sanitizeText(data.SelfText, 2000),
			Author:      author,
			CreatedUTC:  time.Unix(int64(data.CreatedUTC), 0).UTC(),
			Score:       int(data.Score),
			UpvoteRatio: &ratio,
			NumComments: int(data.NumComments),
			URL:         postURL,
		})
	}
	return posts, nil
}

func sanitizeText(in string, maxLen int) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return ""
	}
	in = strings.ReplaceAll(in, "\n", " ")
	in = strings.ReplaceAll(in, "\r", " ")
	in = strings.Join(strings.Fields(in), " ")
	if maxLen > 0 && len(in) > maxLen {
		in = in[:maxLen]
	}
	return in
}
