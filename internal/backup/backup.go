package backup

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"market-intel/internal/domain"
)

// CSVBackup mirrors stored batches to timestamped CSV files so a wiped
// database can be reloaded without refetching every upstream API.
type CSVBackup struct {
	dir string
	now func() time.Time
}

func NewCSVBackup(dir string) (*CSVBackup, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &CSVBackup{dir: dir, now: time.Now}, nil
}

func (b *CSVBackup) WriteOHLC(bars []domain.OHLCBar) error {
	rows := make([][]string, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, []string{
			bar.Asset,
			bar.TsUTC.UTC().Format(time.RFC3339),
			formatFloat(bar.Open),
			formatFloat(bar.High),
			formatFloat(bar.Low),
			formatFloat(bar.Close),
			bar.Session,
		})
	}
	header := []string{"asset", "ts_utc", "open", "high", "low", "close", "session"}
	return b.write("ohlc", header, rows)
}

func (b *CSVBackup) WriteSentimentIndex(points []domain.SentimentIndexPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			domain.DateString(p.AsOfDate),
			strconv.Itoa(p.Value),
			p.Classification,
		})
	}
	header := []string{"as_of_date", "fng_value", "classification"}
	return b.write("sentiment_index", header, rows)
}

func (b *CSVBackup) WriteETFFlows(flows []domain.ETFFlow) error {
	rows := make([][]string, 0, len(flows))
	for _, f := range flows {
		rows = append(rows, []string{
			domain.DateString(f.AsOfDate),
			f.Ticker,
			formatFloatPtr(f.NetFlowUSD),
			formatFloatPtr(f.AUMUSD),
			f.Source,
		})
	}
	header := []string{"as_of_date", "ticker", "net_flow_usd", "aum_usd", "source"}
	return b.write("etf_flows", header, rows)
}

// CleanupOldBackups removes backup files older than keepDays and
// returns the number deleted.
func (b *CSVBackup) CleanupOldBackups(keepDays int) (int, error) {
	if keepDays < 1 {
		keepDays = 30
	}
	cutoff := b.now().Add(-time.Duration(keepDays) * 24 * time.Hour)

	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return 0, fmt.Errorf("read backup directory: %w", err)
	}

	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, entry.Name())); err != nil {
			return deleted, fmt.Errorf("remove %s: %w", entry.Name(), err)
		}
		deleted++
	}
	return deleted, nil
}

func (b *CSVBackup) write(prefix string, header []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}
	name := fmt.Sprintf("%s_%s.csv", prefix, b.now().UTC().Format("20060102_150405"))
	f, err := os.Create(filepath.Join(b.dir, name))
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
