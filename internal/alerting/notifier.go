package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"continuous-futures/internal/series"
)

// Notification describes a product whose continuous series was withheld.
type Notification struct {
	Product  string
	Contract string
	Stage    string
	Err      error
	Time     time.Time
}

// NeedsReconciliation reports whether the failure was a date misalignment between contracts,
// which no retry can fix.
func (n Notification) NeedsReconciliation() bool {
	return errors.Is(n.Err, series.ErrAlignment)
}

// Notifier delivers withheld-product notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes messages through the Telegram Bot API.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier constructs a Telegram notifier.
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "alert_telegram").Logger(),
	}
}

// Notify calls sendMessage with the rendered notification.
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram unexpected status: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && !result.OK {
		return fmt.Errorf("telegram returned ok=false")
	}

	n.logger.Info().
		Str("product", note.Product).
		Str("stage", note.Stage).
		Msg("withheld product notification sent")
	return nil
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Continuous Series Withheld]\n")
	builder.WriteString(fmt.Sprintf("Product: %s\n", note.Product))
	if note.Contract != "" {
		builder.WriteString(fmt.Sprintf("Contract: %s\n", note.Contract))
	}
	builder.WriteString(fmt.Sprintf("Stage: %s\n", note.Stage))
	if !note.Time.IsZero() {
		builder.WriteString(fmt.Sprintf("Time: %s UTC\n", note.Time.UTC().Format(time.RFC3339)))
	}
	if note.Err != nil {
		builder.WriteString(fmt.Sprintf("Error: %v\n", note.Err))
	}
	if note.NeedsReconciliation() {
		builder.WriteString("Action: roll dates misaligned, manual reconciliation required\n")
	}
	return builder.String()
}

// LogNotifier records notifications in the log when no remote channel is configured.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a notifier that only logs.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify logs the notification at warn level.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	n.logger.Warn().
		Err(note.Err).
		Str("product", note.Product).
		Str("contract", note.Contract).
		Str("stage", note.Stage).
		Bool("needs_reconciliation", note.NeedsReconciliation()).
		Msg("continuous series withheld")
	return nil
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
