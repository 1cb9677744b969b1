package store

import (
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/trace"
)

// a nil pool panics on any use, so these prove the empty-input no-op
// contract without a database.
func emptyStore() *Store {
	return New(nil, trace.NewNoopTracerProvider().Tracer("test"))
}

func TestUpsertsEmptyInputNoOp(t *testing.T) {
	s := emptyStore()
	ctx := context.Background()

	checks := []struct {
		name string
		call func() (int64, error)
	}{
		{"ohlc", func() (int64, error) { return s.UpsertOHLCBars(ctx, nil) }},
		{"sentiment-index", func() (int64, error) { return s.UpsertSentimentIndex(ctx, nil) }},
		{"etf-flows", func() (int64, error) { return s.UpsertETFFlows(ctx, nil) }},
		{"market-metrics", func() (int64, error) { return s.UpsertMarketMetrics(ctx, nil) }},
		{"funding-rates", func() (int64, error) { return s.UpsertFundingRates(ctx, nil) }},
		{"open-interest", func() (int64, error) { return s.UpsertOpenInterest(ctx, nil) }},
		{"social-posts", func() (int64, error) { return s.UpsertSocialPosts(ctx, nil) }},
		{"news-articles", func() (int64, error) { return s.UpsertNewsArticles(ctx, nil) }},
		{"search-trends", func() (int64, error) { return s.UpsertSearchTrends(ctx, nil) }},
	}
	for _, c := range checks {
		n, err := c.call()
		if err != nil {
			t.Errorf("%s: unexpected error: %v", c.name, err)
		}
		if n != 0 {
			t.Errorf("%s: affected = %d, want 0", c.name, n)
		}
	}
}

func TestEmptyAggregateUpsertsNoOp(t *testing.T) {
	s := emptyStore()
	ctx := context.Background()

	if n, err := s.upsertSocialSentimentDailies(ctx, nil); n != 0 || err != nil {
		t.Errorf("social dailies: %d, %v", n, err)
	}
	if n, err := s.upsertSearchInterestDailies(ctx, nil); n != 0 || err != nil {
		t.Errorf("search dailies: %d, %v", n, err)
	}
	if n, err := s.upsertDailySnapshots(ctx, nil); n != 0 || err != nil {
		t.Errorf("snapshots: %d, %v", n, err)
	}
}

func TestTableDDLCoversCountedTables(t *testing.T) {
	for _, table := range countedTables {
		ddl, ok := tableDDL[table]
		if !ok {
			t.Errorf("no DDL for counted table %s", table)
			continue
		}
		if !strings.Contains(ddl, "CREATE TABLE IF NOT EXISTS "+table) {
			t.Errorf("DDL for %s does not create it idempotently", table)
		}
	}
	if _, ok := tableDDL["schema_version"]; !ok {
		t.Error("schema_version table missing from DDL")
	}
}

func TestDDLKeysMatchNaturalKeys(t *testing.T) {
	keys := map[string]string{
		"ohlc_hourly":             "PRIMARY KEY (asset, ts_utc)",
		"etf_flows_daily":         "PRIMARY KEY (as_of_date, ticker)",
		"market_metrics_daily":    "PRIMARY KEY (as_of_date, asset)",
		"funding_rates_snapshots": "PRIMARY KEY (ts_utc, asset, source)",
		"open_interest_daily":     "PRIMARY KEY (as_of_date, asset, source)",
		"social_sentiment_daily":  "PRIMARY KEY (as_of_date, platform)",
		"search_interest_daily":   "PRIMARY KEY (as_of_date, keyword)",
		"search_trends_raw":       "PRIMARY KEY (ts_utc, keyword)",
		"daily_market_snapshot":   "PRIMARY KEY (as_of_date, asset)",
	}
	for table, key := range keys {
		if !strings.Contains(tableDDL[table], key) {
			t.Errorf("%s missing %q", table, key)
		}
	}
}
