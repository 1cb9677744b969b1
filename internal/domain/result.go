package domain

import "time"

// StageResult captures the outcome of one pipeline stage. Fetch and
// per-item failures land in Errors without flipping Success; only a
// storage failure marks the stage failed.
type StageResult struct {
	Name              string   `json:"name"`
	Success           bool     `json:"success"`
	Skipped           bool     `json:"skipped,omitempty"`
	Records           int64    `json:"records"`
	RawRecords        int64    `json:"raw_records,omitempty"`
	AggregatedRecords int64    `json:"aggregated_records,omitempty"`
	Errors            []string `json:"errors,omitempty"`
}

// SkippedStage is the result for a stage whose adapter is not configured.
func SkippedStage(name string) StageResult {
	return StageResult{Name: name, Success: true, Skipped: true}
}

// RunResult is the full report for one pipeline run.
type RunResult struct {
	Mode           string           `json:"mode"`
	StartedAt      time.Time        `json:"started_at"`
	Duration       time.Duration    `json:"duration"`
	OHLC           StageResult      `json:"ohlc"`
	SentimentIndex StageResult      `json:"sentiment_index"`
	ETFFlows       StageResult      `json:"etf_flows"`
	MarketMetrics  StageResult      `json:"market_metrics"`
	FundingRates   StageResult      `json:"funding_rates"`
	OpenInterest   StageResult      `json:"open_interest"`
	Social         StageResult      `json:"social"`
	News           StageResult      `json:"news"`
	SearchTrends   StageResult      `json:"search_trends"`
	Snapshots      StageResult      `json:"snapshots"`
	OverallSuccess bool             `json:"overall_success"`
	RecordCounts   map[string]int64 `json:"record_counts,omitempty"`
}

// Stages returns the per-stage results in execution order.
func (r *RunResult) Stages() []StageResult {
	return []StageResult{
		r.OHLC, r.SentimentIndex, r.ETFFlows, r.MarketMetrics,
		r.FundingRates, r.OpenInterest, r.Social, r.News,
		r.SearchTrends, r.Snapshots,
	}
}

// AllErrors flattens every stage's error list, prefixed by stage name.
func (r *RunResult) AllErrors() []string {
	var out []string
	for _, s := range r.Stages() {
		for _, e := range s.Errors {
			out = append(out, s.Name+": "+e)
		}
	}
	return out
}

// Modes for RunResult.Mode.
const (
	ModeDailySync = "daily-sync"
	ModeBackfill  = "backfill"
)
