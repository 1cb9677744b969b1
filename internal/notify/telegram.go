package notify

import (
	"fmt"
	"log"
	"strings"
	"time"

	"market-intel/internal/domain"

	tele "gopkg.in/telebot.v3"
)

type sender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// TelegramNotifier pushes run summaries to a single chat. Send-only;
// no poller is attached.
type TelegramNotifier struct {
	bot    sender
	chatID int64
}

// NewTelegramNotifier returns nil when the token or chat ID is missing,
// which disables notifications without any branching at call sites.
func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if strings.TrimSpace(token) == "" || chatID == 0 {
		log.Println("notify: telegram not configured, run summaries disabled")
		return nil, nil
	}
	b, err := tele.NewBot(tele.Settings{Token: token, Offline: false})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, chatID: chatID}, nil
}

// NotifyRunSummary sends the per-stage outcome of a finished run.
func (n *TelegramNotifier) NotifyRunSummary(result domain.RunResult) error {
	if n == nil || n.bot == nil {
		return nil
	}
	_, err := n.bot.Send(tele.ChatID(n.chatID), formatRunSummary(result))
	return err
}

func formatRunSummary(result domain.RunResult) string {
	var sb strings.Builder
	status := "FAILED"
	if result.OverallSuccess {
		status = "OK"
	}
	fmt.Fprintf(&sb, "Ingestion %s [%s] in %s\n", status, result.Mode, result.Duration.Round(time.Second))
	for _, stage := range result.Stages() {
		switch {
		case stage.Skipped:
			fmt.Fprintf(&sb, "- %s: skipped\n", stage.Name)
		case stage.Success:
			fmt.Fprintf(&sb, "- %s: %d records", stage.Name, stage.Records)
			if len(stage.Errors) > 0 {
				fmt.Fprintf(&sb, " (%d warnings)", len(stage.Errors))
			}
			sb.WriteString("\n")
		default:
			fmt.Fprintf(&sb, "- %s: FAILED (%s)\n", stage.Name, firstError(stage))
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func firstError(stage domain.StageResult) string {
	if len(stage.Errors) == 0 {
		return "unknown error"
	}
	return stage.Errors[0]
}
