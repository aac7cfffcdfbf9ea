// Package webhook delivers bus events to externally configured HTTP
// endpoints so collaborating scrapers can react to cache changes.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sydlexius/backbeat/internal/event"
)

const (
	maxRetries     = 3
	requestTimeout = 10 * time.Second
)

// Notifier posts events to a fixed set of URLs taken from configuration.
type Notifier struct {
	urls       []string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNotifier creates a webhook notifier for the given endpoint URLs.
func NewNotifier(urls []string, logger *slog.Logger) *Notifier {
	return &Notifier{
		urls:       urls,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger.With(slog.String("component", "webhook")),
	}
}

// NewNotifierWithHTTPClient creates a notifier with a custom HTTP client (for testing).
func NewNotifierWithHTTPClient(urls []string, httpClient *http.Client, logger *slog.Logger) *Notifier {
	return &Notifier{
		urls:       urls,
		httpClient: httpClient,
		logger:     logger.With(slog.String("component", "webhook")),
	}
}

// HandleEvent is an event.Handler that fans the event out to every
// configured endpoint.
func (n *Notifier) HandleEvent(e event.Event) {
	for _, url := range n.urls {
		go n.deliver(url, e)
	}
}

func (n *Notifier) deliver(url string, e event.Event) {
	body := formatPayload(e)

	var lastErr error
	for attempt := range maxRetries {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			time.Sleep(backoff)
		}

		lastErr = n.send(url, body)
		if lastErr == nil {
			n.logger.Debug("webhook delivered",
				"url", url,
				"event", string(e.Type),
				"attempt", attempt+1,
			)
			return
		}

		n.logger.Warn("webhook delivery failed",
			"url", url,
			"event", string(e.Type),
			"attempt", attempt+1,
			"error", lastErr,
		)
	}

	n.logger.Error("webhook delivery exhausted retries",
		"url", url,
		"event", string(e.Type),
		"error", lastErr,
	)
}

func (n *Notifier) send(url string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Backbeat-Webhook/1.0")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()        //nolint:errcheck
	io.Copy(io.Discard, resp.Body) //nolint:errcheck

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

func formatPayload(e event.Event) []byte {
	payload := map[string]any{
		"event":     string(e.Type),
		"timestamp": e.Timestamp,
		"data":      e.Data,
	}
	body, _ := json.Marshal(payload)
	return body
}
