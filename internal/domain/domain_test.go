package domain

import (
	"testing"
	"time"
)

func TestClassifySession(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{0, SessionAsia},
		{7, SessionAsia},
		{8, SessionEurope},
		{15, SessionEurope},
		{16, SessionUS},
		{23, SessionUS},
	}
	for _, c := range cases {
		if got := ClassifySession(c.hour); got != c.want {
			t.Errorf("ClassifySession(%d) = %q, want %q", c.hour, got, c.want)
		}
	}
}

func TestDayOf(t *testing.T) {
	ts := time.Date(2026, 3, 14, 15, 9, 26, 535, time.FixedZone("EST", -5*3600))
	day := DayOf(ts)
	if day.Hour() != 0 || day.Minute() != 0 || day.Location() != time.UTC {
		t.Errorf("DayOf not midnight UTC: %v", day)
	}
	// 15:09 EST is 20:09 UTC, same calendar day
	if DateString(day) != "2026-03-14" {
		t.Errorf("DayOf wrong day: %v", day)
	}
}

func TestSameDay(t *testing.T) {
	a := time.Date(2026, 3, 14, 0, 0, 1, 0, time.UTC)
	b := time.Date(2026, 3, 14, 23, 59, 59, 0, time.UTC)
	c := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if !SameDay(a, b) {
		t.Error("expected same day")
	}
	if SameDay(b, c) {
		t.Error("expected different days")
	}
}

func TestCoinGeckoIDRoundTrip(t *testing.T) {
	for sym, id := range CoinGeckoID {
		if CoinGeckoIDToSymbol[id] != sym {
			t.Errorf("reverse map missing %s -> %s", id, sym)
		}
	}
}

func TestRunResultAllErrors(t *testing.T) {
	r := RunResult{
		OHLC:   StageResult{Name: "ohlc", Success: true, Errors: []string{"BTC fetch failed"}},
		Social: StageResult{Name: "social", Success: true, Errors: []string{"reddit 429"}},
	}
	errs := r.AllErrors()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	if errs[0] != "ohlc: BTC fetch failed" {
		t.Errorf("unexpected first error: %q", errs[0])
	}
}

func TestSkippedStage(t *testing.T) {
	s := SkippedStage("etf_flows")
	if !s.Success || !s.Skipped || s.Records != 0 {
		t.Errorf("unexpected skipped stage: %+v", s)
	}
}
