package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
)

// WebhookNotifier posts notification events as JSON to an HTTP endpoint owned
// by the account/notification subsystem.
type WebhookNotifier struct {
	url        string
	httpClient *http.Client
	logger     arbor.ILogger
}

// NewWebhookNotifier creates a webhook notifier
func NewWebhookNotifier(url string, timeout time.Duration, logger arbor.ILogger) *WebhookNotifier {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &WebhookNotifier{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Send delivers one event
func (n *WebhookNotifier) Send(ctx context.Context, event model.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: webhook returned status %d: %s", model.ErrProviderUnavailable, resp.StatusCode, string(msg))
	}

	n.logger.Info().
		Str("saved_search_id", event.SavedSearchID).
		Int("count", event.Count).
		Msg("Notification delivered")
	return nil
}

// LogNotifier only logs events. Used when no webhook is configured.
type LogNotifier struct {
	logger arbor.ILogger
}

// NewLogNotifier creates a log-only notifier
func NewLogNotifier(logger arbor.ILogger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the event
func (n *LogNotifier) Send(ctx context.Context, event model.NotificationEvent) error {
	n.logger.Info().
		Str("saved_search_id", event.SavedSearchID).
		Str("owner_id", event.OwnerID).
		Int("count", event.Count).
		Msg("New listings for saved search")
	return nil
}

var (
	_ Notifier = (*WebhookNotifier)(nil)
	_ Notifier = (*LogNotifier)(nil)
)
