package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const sosoValueBaseURL = "https://api.sosovalue.xyz"

// ETFFlowsProvider fetches daily US spot bitcoin ETF flows from the
// SoSoValue API. Requires an API key; without one the stage is skipped
// upstream.
type ETFFlowsProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewETFFlowsProvider(apiKey string, tracer trace.Tracer) *ETFFlowsProvider {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil
	}
	return &ETFFlowsProvider{
		client:  &http.Client{Timeout: 20 * time.Second},
		baseURL: sosoValueBaseURL,
		apiKey:  apiKey,
		tracer:  tracer,
		limiter: NewRateLimiter(5, time.Second),
	}
}

// FetchFlows fetches per-ticker net flows for the trailing window.
func (p *ETFFlowsProvider) FetchFlows(ctx context.Context, days int) ([]domain.ETFFlow, error) {
	_, span := p.tracer.Start(ctx, "etfflows.fetch-flows")
	defer span.End()

	if days <= 0 {
		days = 7
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	reqBody, _ := json.Marshal(map[string]any{
		"type": "us-btc-spot",
		"days": days,
	})
	url := strings.TrimRight(p.baseURL, "/") + "/openapi/v2/etf/historicalInflowChart"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-soso-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("sosovalue API error %d: %s", resp.StatusCode, string(body))
	}

	var payload struct {
		Data []struct {
			Date   string `json:"date"`
			Ticker string `json:"ticker"`
			// flows are reported in USD
			NetFlow *float64 `json:"totalNetInflow"`
			AUM     *float64 `json:"cumNetInflow"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode etf flows response: %w", err)
	}

	flows := make([]domain.ETFFlow, 0, len(payload.Data))
	for _, row := range payload.Data {
		date, err := time.Parse("2006-01-02", row.Date)
		if err != nil {
			continue
		}
		ticker := strings.TrimSpace(row.Ticker)
		if ticker == "" {
			ticker = "TOTAL"
		}
		flows = append(flows, domain.ETFFlow{
			AsOfDate:   date.UTC(),
			Ticker:     ticker,
			NetFlowUSD: row.NetFlow,
			AUMUSD:     row.AUM,
			Source:     "SOSOVALUE",
		})
	}
	return flows, nil
}
