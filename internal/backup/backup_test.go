package backup

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"market-intel/internal/domain"
)

func TestWriteOHLCRoundTrip(t *testing.T) {
	b, err := NewCSVBackup(t.TempDir())
	if err != nil {
		t.Fatalf("new backup: %v", err)
	}

	bars := []domain.OHLCBar{{
		Asset:   "BTC",
		TsUTC:   time.Date(2026, 8, 20, 14, 0, 0, 0, time.UTC),
		Open:    100, High: 110, Low: 95, Close: 105,
		Session: domain.SessionEurope,
	}}
	if err := b.WriteOHLC(bars); err != nil {
		t.Fatalf("write ohlc: %v", err)
	}

	files, err := filepath.Glob(filepath.Join(b.dir, "ohlc_*.csv"))
	if err != nil || len(files) != 1 {
		t.Fatalf("expected 1 backup file, got %v (%v)", files, err)
	}

	f, err := os.Open(files[0])
	if err != nil {
		t.Fatalf("open backup: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[1][0] != "BTC" || rows[1][6] != domain.SessionEurope {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestWriteEmptyBatchCreatesNoFile(t *testing.T) {
	b, err := NewCSVBackup(t.TempDir())
	if err != nil {
		t.Fatalf("new backup: %v", err)
	}
	if err := b.WriteETFFlows(nil); err != nil {
		t.Fatalf("empty write: %v", err)
	}
	files, _ := filepath.Glob(filepath.Join(b.dir, "*.csv"))
	if len(files) != 0 {
		t.Fatalf("empty batch must not create files, got %v", files)
	}
}

func TestCleanupOldBackups(t *testing.T) {
	b, err := NewCSVBackup(t.TempDir())
	if err != nil {
		t.Fatalf("new backup: %v", err)
	}

	stale := filepath.Join(b.dir, "ohlc_20260101_000000.csv")
	if err := os.WriteFile(stale, []byte("asset\n"), 0o644); err != nil {
		t.Fatalf("write stale file: %v", err)
	}
	old := time.Now().Add(-40 * 24 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("age stale file: %v", err)
	}
	fresh := filepath.Join(b.dir, "ohlc_20260829_000000.csv")
	if err := os.WriteFile(fresh, []byte("asset\n"), 0o644); err != nil {
		t.Fatalf("write fresh file: %v", err)
	}

	deleted, err := b.CleanupOldBackups(30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d, want 1", deleted)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatal("fresh backup must survive cleanup")
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatal("stale backup must be removed")
	}
}
