package notify

import (
	"strings"
	"testing"
	"time"

	"market-intel/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type captureSender struct {
	sent []string
}

func (c *captureSender) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	c.sent = append(c.sent, what.(string))
	return &tele.Message{}, nil
}

func TestNewTelegramNotifierRequiresConfig(t *testing.T) {
	n, err := NewTelegramNotifier("", 123)
	if err != nil || n != nil {
		t.Fatalf("expected nil notifier without token, got %v, %v", n, err)
	}
	n, err = NewTelegramNotifier("token", 0)
	if err != nil || n != nil {
		t.Fatalf("expected nil notifier without chat id, got %v, %v", n, err)
	}
}

func TestNotifyRunSummarySends(t *testing.T) {
	capture := &captureSender{}
	n := &TelegramNotifier{bot: capture, chatID: 42}

	result := domain.RunResult{
		Mode:           domain.ModeDailySync,
		Duration:       90 * time.Second,
		OverallSuccess: true,
		OHLC:           domain.StageResult{Name: "ohlc", Success: true, Records: 336},
		SentimentIndex: domain.StageResult{Name: "sentiment-index", Success: true, Records: 7},
		ETFFlows:       domain.SkippedStage("etf-flows"),
		News:           domain.StageResult{Name: "news", Errors: []string{"fetch: 401"}},
	}
	if err := n.NotifyRunSummary(result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(capture.sent) != 1 {
		t.Fatalf("expected 1 message, got %d", len(capture.sent))
	}
	msg := capture.sent[0]
	if !strings.Contains(msg, "Ingestion OK [daily-sync]") {
		t.Errorf("missing header: %q", msg)
	}
	if !strings.Contains(msg, "ohlc: 336 records") {
		t.Errorf("missing ohlc line: %q", msg)
	}
	if !strings.Contains(msg, "etf-flows: skipped") {
		t.Errorf("missing skip line: %q", msg)
	}
	if !strings.Contains(msg, "news: FAILED (fetch: 401)") {
		t.Errorf("missing failure line: %q", msg)
	}
}

func TestNotifyRunSummaryNilReceiver(t *testing.T) {
	var n *TelegramNotifier
	if err := n.NotifyRunSummary(domain.RunResult{}); err != nil {
		t.Fatalf("nil notifier must be a no-op, got %v", err)
	}
}
