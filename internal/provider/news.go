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
	newsAPIBaseURL = "https://newsapi.org/v2"
	// default query covers the tracked assets plus the broad market
	defaultNewsQuery = "bitcoin OR ethereum OR cryptocurrency"
)

// NewsProvider fetches crypto articles from NewsAPI. Requires an API
// key; without one the news stage is skipped upstream.
type NewsProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewNewsProvider(apiKey string, tracer trace.Tracer) *NewsProvider {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	return &NewsProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: newsAPIBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(5, time.Second),
	}
}

// FetchArticles fetches up to 100 articles published in [from, to].
// Sentiment fields are left zeroed for the pipeline to score.
func (p *NewsProvider) FetchArticles(ctx context.Context, from, to time.Time) ([]domain.NewsArticle, error) {
	_, span := p.tracer.Start(ctx, "news.fetch-articles")
	defer span.End()

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	q := url.Values{}
	q.Set("q", defaultNewsQuery)
	q.Set("from", from.UTC().Format("2006-01-02"))
	q.Set("to", to.UTC().Format("2006-01-02"))
	q.Set("language", "en")
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", "100")

	u := strings.TrimRight(p.baseURL, "/") + "/everything?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Api-Key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("newsapi error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Status   string `json:"status"`
		Articles []struct {
			Source struct {
				Name string `json:"name"`
			} `json:"source"`
			Author      string `json:"author"`
			Title       string `json:"title"`
			Description string `json:"description"`
			URL         string `json:"url"`
			PublishedAt string `json:"publishedAt"`
		} `json:"articles"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode newsapi response: %w", err)
	}
	if payload.Status != "ok" {
		return nil, fmt.Errorf("newsapi status %q", payload.Status)
	}

	articles := make([]domain.NewsArticle, 0, len(payload.Articles))
	for _, row := range payload.Articles {
		if strings.TrimSpace(row.URL) == "" || strings.TrimSpace(row.Title) == "" {
			continue
		}
		publishedAt, err := time.Parse(time.RFC3339, row.PublishedAt)
		if err != nil {
			continue
		}
		source := strings.TrimSpace(row.Source.Name)
		if source == "" {
			source = "Unknown"
		}
		articles = append(articles, domain.NewsArticle{
			URL:         row.URL,
			Title:       sanitizeText(row.Title, 300),
			Description: sanitizeText(row.Description, 1000),
			Source:      source,
			Author:      sanitizeText(row.Author, 120),
			PublishedAt: publishedAt.UTC(),
		})
	}
	return articles, nil
}
