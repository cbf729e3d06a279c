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
)

// WebhookChannel posts alert summaries as JSON to a configured endpoint,
// e.g. a chat integration or an incident intake hook.
type WebhookChannel struct {
	url       string
	authToken string
	client    *http.Client
	logger    zerolog.Logger
}

// NewWebhookChannel constructs a webhook channel.
func NewWebhookChannel(url, authToken string, timeout time.Duration, logger zerolog.Logger) *WebhookChannel {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookChannel{
		url:       strings.TrimSpace(url),
		authToken: authToken,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With().Str("component", "alert_webhook").Logger(),
	}
}

// Name returns the channel identifier.
func (c *WebhookChannel) Name() string { return "webhook" }

type webhookPayload struct {
	AlertID     int64  `json:"alert_id"`
	Ticker      string `json:"ticker"`
	Rule        string `json:"rule"`
	Severity    string `json:"severity"`
	Title       string `json:"title"`
	Description string `json:"description"`
	AwayName    string `json:"away_name"`
	AwayPrice   string `json:"away_price"`
	HomeName    string `json:"home_name"`
	HomePrice   string `json:"home_price"`
	CreatedAt   string `json:"created_at"`
}

// Send delivers one alert summary to the endpoint.
func (c *WebhookChannel) Send(ctx context.Context, summary AlertSummary) error {
	if c.url == "" {
		return fmt.Errorf("webhook url not configured")
	}

	body, err := json.Marshal(webhookPayload{
		AlertID:     summary.ID,
		Ticker:      summary.Ticker,
		Rule:        string(summary.Rule),
		Severity:    string(summary.Severity),
		Title:       summary.Title,
		Description: summary.Description,
		AwayName:    summary.AwayName,
		AwayPrice:   summary.AwayPrice.String(),
		HomeName:    summary.HomeName,
		HomePrice:   summary.HomePrice.String(),
		CreatedAt:   summary.CreatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}

	c.logger.Info().
		Int64("alert_id", summary.ID).
		Str("ticker", summary.Ticker).
		Msg("alert delivered to webhook")
	return nil
}

var _ Channel = (*WebhookChannel)(nil)
