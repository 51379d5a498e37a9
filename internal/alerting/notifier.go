package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"hydro-extremes/internal/extremes"
)

// Notification reports a changed extreme of a watched series.
type Notification struct {
	Bucket        time.Time
	SeriesID      string
	Label         string
	Station       string
	Unit          string
	Comparator    extremes.Comparator
	Points        []extremes.Point
	Previous      []extremes.Point
	Channels      []string
	AdditionalMsg string
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier pushes notifications through the Telegram Bot API.
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

// Notify calls sendMessage with the rendered text.
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
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram returned ok=false")
		}
	}

	n.logger.Info().Time("bucket", note.Bucket).
		Str("series", note.SeriesID).
		Str("comparator", note.Comparator.String()).
		Str("channels", strings.Join(note.Channels, ",")).
		Msg("notification sent (telegram)")
	return nil
}

// LogNotifier writes notifications to the structured log.
type LogNotifier struct {
	logger zerolog.Logger
}

// NewLogNotifier constructs a log-only notifier.
func NewLogNotifier(logger zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.With().Str("component", "alert_log").Logger()}
}

// Notify logs the notification at warn level.
func (n *LogNotifier) Notify(_ context.Context, note Notification) error {
	values := make([]string, 0, len(note.Points))
	for _, p := range note.Points {
		values = append(values, p.String())
	}
	n.logger.Warn().Time("bucket", note.Bucket).
		Str("series", note.SeriesID).
		Str("comparator", note.Comparator.String()).
		Strs("points", values).
		Msg("new extreme")
	return nil
}

// Multi fans a notification out to several notifiers and returns the first error.
type Multi []Notifier

// Notify delivers to every notifier even when one fails.
func (m Multi) Notify(ctx context.Context, note Notification) error {
	var first error
	for _, n := range m {
		if err := n.Notify(ctx, note); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("[Extremes] New %s\n", comparatorWord(note.Comparator)))
	if note.Station != "" {
		builder.WriteString(fmt.Sprintf("Station: %s\n", note.Station))
	}
	label := note.Label
	if label == "" {
		label = note.SeriesID
	}
	builder.WriteString(fmt.Sprintf("Series: %s\n", label))
	builder.WriteString(fmt.Sprintf("Checked: %s UTC\n", note.Bucket.UTC().Format(time.RFC3339)))
	for _, p := range note.Points {
		builder.WriteString(fmt.Sprintf("Value: %s%s at %s\n", p.Value.String(), unitSuffix(note.Unit), pointTime(p)))
	}
	if len(note.Previous) > 0 {
		prev := note.Previous[0]
		builder.WriteString(fmt.Sprintf("Previous: %s%s at %s\n", prev.Value.String(), unitSuffix(note.Unit), pointTime(prev)))
	}
	if len(note.Channels) > 0 {
		builder.WriteString(fmt.Sprintf("Channels: %s\n", strings.Join(note.Channels, ",")))
	}
	if note.AdditionalMsg != "" {
		builder.WriteString(note.AdditionalMsg)
	}
	return builder.String()
}

func comparatorWord(c extremes.Comparator) string {
	if c == extremes.Max {
		return "maximum"
	}
	return "minimum"
}

func unitSuffix(unit string) string {
	if unit == "" {
		return ""
	}
	return " " + unit
}

func pointTime(p extremes.Point) string {
	if p.Daily {
		return p.Date()
	}
	return p.Time.Format(time.RFC3339)
}

var (
	_ Notifier = (*TelegramNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = Multi(nil)
)
