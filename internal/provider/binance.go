package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const binanceFuturesBaseURL = "https://fapi.binance.com"

// BinanceFuturesProvider fetches perpetual funding rates and open
// interest from the Binance USD-M futures API.
type BinanceFuturesProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewBinanceFuturesProvider(tracer trace.Tracer) *BinanceFuturesProvider {
	return &BinanceFuturesProvider{
		client:  &http.Client{Timeout: 15 * time.Second},
		baseURL: binanceFuturesBaseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(10, 500*time.Millisecond),
	}
}

// FetchFundingRates fetches the current funding snapshot for every
// tracked asset. A per-asset failure is returned in errs without
// dropping the successful rows.
func (p *BinanceFuturesProvider) FetchFundingRates(ctx context.Context, assets []string) ([]domain.FundingRate, []error) {
	_, span := p.tracer.Start(ctx, "binance.fetch-funding-rates")
	defer span.End()

	var rates []domain.FundingRate
	var errs []error
	for _, asset := range assets {
		symbol, ok := domain.BinanceSymbol[asset]
		if !ok {
			errs = append(errs, fmt.Errorf("no binance symbol for %s", asset))
			continue
		}
		rate, err := p.fetchFundingRate(ctx, asset, symbol)
		if err != nil {
			errs = append(errs, fmt.Errorf("funding rate %s: %w", asset, err))
			continue
		}
		rates = append(rates, *rate)
	}
	return rates, errs
}

func (p *BinanceFuturesProvider) fetchFundingRate(ctx context.Context, asset, symbol string) (*domain.FundingRate, error) {
	body, err := p.doRequest(ctx, fmt.Sprintf("%s/fapi/v1/premiumIndex?symbol=%s", p.baseURL, symbol))
	if err != nil {
		return nil, err
	}

	var payload struct {
		LastFundingRate string `json:"lastFundingRate"`
		MarkPrice       string `json:"markPrice"`
		Time            int64  `json:"time"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse premium index: %w", err)
	}

	rate, err := strconv.ParseFloat(payload.LastFundingRate, 64)
	if err != nil {
		return nil, fmt.Errorf("parse funding rate: %w", err)
	}
	var markPrice *float64
	if mp, err := strconv.ParseFloat(payload.MarkPrice, 64); err == nil {
		markPrice = &mp
	}

	ts := time.UnixMilli(payload.Time).UTC()
	if payload.Time == 0 {
		ts = time.Now().UTC()
	}
	return &domain.FundingRate{
		TsUTC:                ts.Truncate(time.Minute),
		Asset:                asset,
		FundingRatePct:       rate * 100,
		FundingIntervalHours: 8,
		MarkPrice:            markPrice,
		Source:               "BINANCE",
	}, nil
}

// FetchOpenInterest fetches today's open interest per tracked asset,
// converted to USD at the current mark price.
func (p *BinanceFuturesProvider) FetchOpenInterest(ctx context.Context, assets []string) ([]domain.OpenInterest, []error) {
	_, span := p.tracer.Start(ctx, "binance.fetch-open-interest")
	defer span.End()

	today := domain.DayOf(time.Now())
	var readings []domain.OpenInterest
	var errs []error
	for _, asset := range assets {
		symbol, ok := domain.BinanceSymbol[asset]
		if !ok {
			errs = append(errs, fmt.Errorf("no binance symbol for %s", asset))
			continue
		}

		body, err := p.doRequest(ctx, fmt.Sprintf("%s/fapi/v1/openInterest?symbol=%s", p.baseURL, symbol))
		if err != nil {
			errs = append(errs, fmt.Errorf("open interest %s: %w", asset, err))
			continue
		}
		var payload struct {
			OpenInterest string `json:"openInterest"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			errs = append(errs, fmt.Errorf("parse open interest %s: %w", asset, err))
			continue
		}
		contracts, err := strconv.ParseFloat(payload.OpenInterest, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("parse open interest %s: %w", asset, err))
			continue
		}

		rate, err := p.fetchFundingRate(ctx, asset, symbol)
		if err != nil || rate.MarkPrice == nil {
			errs = append(errs, fmt.Errorf("mark price %s: %v", asset, err))
			continue
		}

		readings = append(readings, domain.OpenInterest{
			AsOfDate:              today,
			Asset:                 asset,
			OpenInterestUSD:       contracts * *rate.MarkPrice,
			OpenInterestContracts: &contracts,
			Source:                "BINANCE",
		})
	}
	return readings, errs
}

func (p *BinanceFuturesProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
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
		return nil, fmt.Errorf("binance API error %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
