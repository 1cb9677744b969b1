package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"market-intel/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3"

// CoinGeckoProvider fetches hourly price history and daily market
// metrics from the CoinGecko free API.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewCoinGeckoProvider creates a provider rate limited to 8 requests
// per minute (one token every 7.5 seconds), the free-tier ceiling.
func NewCoinGeckoProvider(tracer trace.Tracer) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: coingeckoBaseURL,
		tracer:  tracer,
		limiter: NewRateLimiter(8, 7500*time.Millisecond),
	}
}

// FetchHourlyOHLC fetches up to days of price history for one asset
// and buckets it into session-tagged hourly bars.
func (p *CoinGeckoProvider) FetchHourlyOHLC(ctx context.Context, asset string, days int) ([]domain.OHLCBar, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-hourly-ohlc")
	defer span.End()

	cgID, ok := domain.CoinGeckoID[asset]
	if !ok {
		return nil, fmt.Errorf("unsupported asset: %s", asset)
	}
	if days <= 0 {
		days = 7
	}

	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		p.baseURL, cgID, days)
	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", asset, err)
	}

	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse market chart for %s: %w", asset, err)
	}

	return buildHourlyBars(asset, raw.Prices), nil
}

// buildHourlyBars buckets [timestamp-ms, price] pairs into hourly bars.
// The first price in an hour opens the bar, the last closes it.
func buildHourlyBars(asset string, prices [][]float64) []domain.OHLCBar {
	if len(prices) == 0 {
		return nil
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i][0] < prices[j][0] })

	type bucket struct {
		open, high, low, close float64
	}
	buckets := make(map[int64]*bucket)
	for _, pt := range prices {
		if len(pt) < 2 {
			continue
		}
		price := pt[1]
		hour := time.UnixMilli(int64(pt[0])).UTC().Truncate(time.Hour).Unix()
		b, exists := buckets[hour]
		if !exists {
			buckets[hour] = &bucket{open: price, high: price, low: price, close: price}
			continue
		}
		b.high = math.Max(b.high, price)
		b.low = math.Min(b.low, price)
		b.close = price
	}

	hours := make([]int64, 0, len(buckets))
	for h := range buckets {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i] < hours[j] })

	bars := make([]domain.OHLCBar, 0, len(hours))
	for _, h := range hours {
		b := buckets[h]
		ts := time.Unix(h, 0).UTC()
		bars = append(bars, domain.OHLCBar{
			Asset:   asset,
			TsUTC:   ts,
			Open:    b.open,
			High:    b.high,
			Low:     b.low,
			Close:   b.close,
			Session: domain.ClassifySession(ts.Hour()),
		})
	}
	return bars
}

// FetchMarketMetrics fetches the daily volume/cap rows for every
// tracked asset plus BTC dominance from the global endpoint.
func (p *CoinGeckoProvider) FetchMarketMetrics(ctx context.Context) ([]domain.MarketMetrics, error) {
	_, span := p.tracer.Start(ctx, "coingecko.fetch-market-metrics")
	defer span.End()

	ids := make([]string, 0, len(domain.CoinGeckoID))
	for _, id := range domain.CoinGeckoID {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s",
		p.baseURL, strings.Join(ids, ","))
	body, err := p.doRequest(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch coin markets: %w", err)
	}

	var coins []struct {
		ID                string   `json:"id"`
		TotalVolume       *float64 `json:"total_volume"`
		MarketCap         *float64 `json:"market_cap"`
		PriceChangePct24h *float64 `json:"price_change_percentage_24h"`
	}
	if err := json.Unmarshal(body, &coins); err != nil {
		return nil, fmt.Errorf("parse coin markets: %w", err)
	}

	btcDominance, err := p.fetchBTCDominance(ctx)
	if err != nil {
		// dominance is a global extra, a miss leaves the column null
		btcDominance = nil
	}

	today := domain.DayOf(time.Now())
	out := make([]domain.MarketMetrics, 0, len(coins))
	for _, c := range coins {
		asset, ok := domain.CoinGeckoIDToSymbol[c.ID]
		if !ok {
			continue
		}
		out = append(out, domain.MarketMetrics{
			AsOfDate:          today,
			Asset:             asset,
			Volume24hUSD:      c.TotalVolume,
			MarketCapUSD:      c.MarketCap,
			BTCDominancePct:   btcDominance,
			PriceChange24hPct: c.PriceChangePct24h,
			Source:            "COINGECKO",
		})
	}
	return out, nil
}

func (p *CoinGeckoProvider) fetchBTCDominance(ctx context.Context) (*float64, error) {
	body, err := p.doRequest(ctx, p.baseURL+"/global")
	if err != nil {
		return nil, err
	}
	var payload struct {
		Data struct {
			MarketCapPercentage map[string]float64 `json:"market_cap_percentage"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parse global metrics: %w", err)
	}
	dom, ok := payload.Data.MarketCapPercentage["btc"]
	if !ok {
		return nil, fmt.Errorf("global metrics missing btc dominance")
	}
	return &dom, nil
}

func (p *CoinGeckoProvider) doRequest(ctx context.Context, url string) ([]byte, error) {
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
		return nil, fmt.Errorf("coingecko API error %d: %s", resp.StatusCode, string(body))
	}
	return io.ReadAll(resp.Body)
}
