package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const fearGreedBaseURL = "https://api.alternative.me"

// FearGreedProvider fetches the alternative.me crypto fear & greed
// index.
type FearGreedProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
}

func NewFearGreedProvider(tracer trace.Tracer) *FearGreedProvider {
	return &FearGreedProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: fearGreedBaseURL,
		tracer:  tracer,
	}
}

// FetchHistory fetches the most recent limit days of the index, one
// point per day.
func (p *FearGreedProvider) FetchHistory(ctx context.Context, limit int) ([]domain.SentimentIndexPoint, error) {
	_, span := p.tracer.Start(ctx, "feargreed.fetch-history")
	defer span.End()

	if limit <= 0 {
		limit = 30
	}

	url := fmt.Sprintf("%s/fng/?limit=%d", strings.TrimRight(p.baseURL, "/"), limit)
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
		return nil, fmt.Errorf("fear & greed API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []struct {
			Value          string `json:"value"`
			Classification string `json:"value_classification"`
			Timestamp      string `json:"timestamp"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode fear & greed response: %w", err)
	}
	if len(payload.Data) == 0 {
		return nil, fmt.Errorf("fear & greed response has no rows")
	}

	points := make([]domain.SentimentIndexPoint, 0, len(payload.Data))
	for _, row := range payload.Data {
		value, err := strconv.Atoi(strings.TrimSpace(row.Value))
		if err != nil {
			return nil, fmt.Errorf("parse fear & greed value: %w", err)
		}
		ts, err := strconv.ParseInt(strings.TrimSpace(row.Timestamp), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse fear & greed timestamp: %w", err)
		}
		if ts > 1_000_000_000_000 {
			ts = ts / 1000
		}
		points = append(points, domain.SentimentIndexPoint{
			AsOfDate:       domain.DayOf(time.Unix(ts, 0)),
			Value:          value,
			Classification: row.Classification,
		})
	}
	return points, nil
}
