package store

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

// schemaVersion tracks the DDL generation recorded in schema_version.
const schemaVersion = 4

type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store owns the relational schema and all reads/writes against it.
type Store struct {
	pool   pool
	tracer trace.Tracer
}

func New(pool pool, tracer trace.Tracer) *Store {
	return &Store{pool: pool, tracer: tracer}
}

var tableDDL = map[string]string{
	"ohlc_hourly": `
CREATE TABLE IF NOT EXISTS ohlc_hourly (
    asset      TEXT        NOT NULL,
    ts_utc     TIMESTAMPTZ NOT NULL,
    open       DOUBLE PRECISION NOT NULL,
    high       DOUBLE PRECISION NOT NULL,
    low        DOUBLE PRECISION NOT NULL,
    close      DOUBLE PRECISION NOT NULL,
    session    TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (asset, ts_utc)
)`,
	"sentiment_daily": `
CREATE TABLE IF NOT EXISTS sentiment_daily (
    as_of_date     DATE NOT NULL PRIMARY KEY,
    fng_value      INTEGER NOT NULL,
    classification TEXT NOT NULL,
    created_at     TIMESTAMPTZ DEFAULT NOW()
)`,
	"etf_flows_daily": `
CREATE TABLE IF NOT EXISTS etf_flows_daily (
    as_of_date   DATE NOT NULL,
    ticker       TEXT NOT NULL,
    net_flow_usd DOUBLE PRECISION,
    aum_usd      DOUBLE PRECISION,
    source       TEXT,
    created_at   TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (as_of_date, ticker)
)`,
	"market_metrics_daily": `
CREATE TABLE IF NOT EXISTS market_metrics_daily (
    as_of_date           DATE NOT NULL,
    asset                TEXT NOT NULL,
    volume_24h_usd       DOUBLE PRECISION,
    market_cap_usd       DOUBLE PRECISION,
    btc_dominance_pct    DOUBLE PRECISION,
    price_change_24h_pct DOUBLE PRECISION,
    source               TEXT DEFAULT 'COINGECKO',
    created_at           TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (as_of_date, asset)
)`,
	"funding_rates_snapshots": `
CREATE TABLE IF NOT EXISTS funding_rates_snapshots (
    ts_utc                 TIMESTAMPTZ NOT NULL,
    asset                  TEXT NOT NULL,
    funding_rate_pct       DOUBLE PRECISION NOT NULL,
    funding_interval_hours INTEGER DEFAULT 8,
    mark_price             DOUBLE PRECISION,
    source                 TEXT NOT NULL DEFAULT 'BINANCE',
    created_at             TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (ts_utc, asset, source)
)`,
	"open_interest_daily": `
CREATE TABLE IF NOT EXISTS open_interest_daily (
    as_of_date              DATE NOT NULL,
    asset                   TEXT NOT NULL,
    open_interest_usd       DOUBLE PRECISION NOT NULL,
    open_interest_contracts DOUBLE PRECISION,
    source                  TEXT NOT NULL DEFAULT 'BINANCE',
    created_at              TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (as_of_date, asset, source)
)`,
	"social_posts_raw": `
CREATE TABLE IF NOT EXISTS social_posts_raw (
    post_id            TEXT NOT NULL PRIMARY KEY,
    platform           TEXT NOT NULL,
    subreddit          TEXT,
    title              TEXT,
    body               TEXT,
    author             TEXT,
    created_utc        TIMESTAMPTZ NOT NULL,
    score              INTEGER DEFAULT 0,
    upvote_ratio       DOUBLE PRECISION,
    num_comments       INTEGER DEFAULT 0,
    shares             INTEGER DEFAULT 0,
    url                TEXT,
    sentiment_compound DOUBLE PRECISION,
    sentiment_pos      DOUBLE PRECISION,
    sentiment_neg      DOUBLE PRECISION,
    sentiment_neu      DOUBLE PRECISION,
    sentiment_label    TEXT,
    fetched_at         TIMESTAMPTZ DEFAULT NOW()
)`,
	"news_articles_raw": `
CREATE TABLE IF NOT EXISTS news_articles_raw (
    url                  TEXT NOT NULL PRIMARY KEY,
    title                TEXT,
    description          TEXT,
    source               TEXT,
    author               TEXT,
    published_at         TIMESTAMPTZ NOT NULL,
    sentiment_compound   DOUBLE PRECISION,
    sentiment_label      TEXT,
    sentiment_confidence DOUBLE PRECISION,
    positive_prob        DOUBLE PRECISION,
    negative_prob        DOUBLE PRECISION,
    neutral_prob         DOUBLE PRECISION,
    fetched_at           TIMESTAMPTZ DEFAULT NOW()
)`,
	"search_trends_raw": `
CREATE TABLE IF NOT EXISTS search_trends_raw (
    ts_utc         TIMESTAMPTZ NOT NULL,
    keyword        TEXT NOT NULL,
    interest_score DOUBLE PRECISION NOT NULL,
    geo            TEXT DEFAULT '',
    timeframe      TEXT,
    fetched_at     TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (ts_utc, keyword)
)`,
	"social_sentiment_daily": `
CREATE TABLE IF NOT EXISTS social_sentiment_daily (
    as_of_date        DATE NOT NULL,
    platform          TEXT NOT NULL,
    mentions_count    INTEGER NOT NULL,
    sentiment_score   DOUBLE PRECISION NOT NULL,
    positive_mentions INTEGER NOT NULL,
    negative_mentions INTEGER NOT NULL,
    neutral_mentions  INTEGER NOT NULL,
    engagement_score  DOUBLE PRECISION,
    top_keywords      TEXT,
    source            TEXT,
    created_at        TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (as_of_date, platform)
)`,
	"news_sentiment_daily": `
CREATE TABLE IF NOT EXISTS news_sentiment_daily (
    as_of_date    DATE NOT NULL PRIMARY KEY,
    article_count INTEGER NOT NULL,
    avg_sentiment DOUBLE PRECISION NOT NULL,
    positive_pct  DOUBLE PRECISION,
    negative_pct  DOUBLE PRECISION,
    neutral_pct   DOUBLE PRECISION,
    top_sources   TEXT,
    top_keywords  TEXT,
    source        TEXT,
    created_at    TIMESTAMPTZ DEFAULT NOW()
)`,
	"search_interest_daily": `
CREATE TABLE IF NOT EXISTS search_interest_daily (
    as_of_date          DATE NOT NULL,
    keyword             TEXT NOT NULL,
    interest_score      DOUBLE PRECISION NOT NULL,
    interest_change_pct DOUBLE PRECISION,
    source              TEXT,
    created_at          TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (as_of_date, keyword)
)`,
	"daily_market_snapshot": `
CREATE TABLE IF NOT EXISTS daily_market_snapshot (
    as_of_date           DATE NOT NULL,
    asset                TEXT NOT NULL,
    price_close_usd      DOUBLE PRECISION,
    price_chg_24h_pct    DOUBLE PRECISION,
    volume_24h_usd       DOUBLE PRECISION,
    realized_vol_7d_pct  DOUBLE PRECISION,
    fng_value            INTEGER,
    fng_classification   TEXT,
    etf_net_flow_usd     DOUBLE PRECISION,
    dominant_session     TEXT,
    btc_dominance_pct    DOUBLE PRECISION,
    market_cap_usd       DOUBLE PRECISION,
    avg_funding_rate_pct DOUBLE PRECISION,
    open_interest_usd    DOUBLE PRECISION,
    created_at           TIMESTAMPTZ DEFAULT NOW(),
    PRIMARY KEY (as_of_date, asset)
)`,
	"schema_version": `
CREATE TABLE IF NOT EXISTS schema_version (
    version    INTEGER PRIMARY KEY,
    applied_at TIMESTAMPTZ DEFAULT NOW()
)`,
}

var indexDDL = []string{
	`CREATE INDEX IF NOT EXISTS idx_ohlc_ts ON ohlc_hourly(ts_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_etf_ticker ON etf_flows_daily(ticker)`,
	`CREATE INDEX IF NOT EXISTS idx_market_metrics_asset ON market_metrics_daily(asset)`,
	`CREATE INDEX IF NOT EXISTS idx_funding_asset ON funding_rates_snapshots(asset)`,
	`CREATE INDEX IF NOT EXISTS idx_oi_asset ON open_interest_daily(asset)`,
	`CREATE INDEX IF NOT EXISTS idx_social_posts_created ON social_posts_raw(created_utc)`,
	`CREATE INDEX IF NOT EXISTS idx_news_published ON news_articles_raw(published_at)`,
	`CREATE INDEX IF NOT EXISTS idx_trends_keyword ON search_trends_raw(keyword)`,
	`CREATE INDEX IF NOT EXISTS idx_snapshot_asset ON daily_market_snapshot(asset)`,
}

// EnsureSchema makes the schema current: every table and index is
// created if missing and the schema version is recorded. Safe to run
// on every startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "store.ensure-schema")
	defer span.End()

	ok, missing, err := s.VerifySchema(ctx)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("schema: creating missing tables %v", missing)
	}

	for name, ddl := range tableDDL {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", name, err)
		}
	}
	for _, ddl := range indexDDL {
		if _, err := s.pool.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO schema_version (version) VALUES ($1) ON CONFLICT (version) DO NOTHING`,
		schemaVersion,
	); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// VerifySchema reports whether every required table exists, returning
// the names of any missing ones.
func (s *Store) VerifySchema(ctx context.Context) (bool, []string, error) {
	ctx, span := s.tracer.Start(ctx, "store.verify-schema")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'public'`)
	if err != nil {
		return false, nil, err
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return false, nil, err
		}
		existing[name] = true
	}
	if err := rows.Err(); err != nil {
		return false, nil, err
	}

	var missing []string
	for name := range tableDDL {
		if !existing[name] {
			missing = append(missing, name)
		}
	}
	return len(missing) == 0, missing, nil
}

// CurrentVersion returns the highest recorded schema version, 0 when
// none is recorded yet.
func (s *Store) CurrentVersion(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "store.current-version")
	defer span.End()

	var version *int
	if err := s.pool.QueryRow(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	if version == nil {
		return 0, nil
	}
	return *version, nil
}
