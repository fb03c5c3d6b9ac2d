// webhook.go posts lifecycle events as JSON to an HTTP endpoint.
// Delivery uses go-retryablehttp so a flaky receiver does not lose events
// on the first transient failure.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Webhook posts every event to URL.
type Webhook struct {
	url        string
	httpClient *http.Client
	kinds      map[Kind]bool
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithKinds restricts delivery to the given kinds. By default only end and
// error events are posted.
func WithKinds(kinds ...Kind) WebhookOption {
	return func(w *Webhook) {
		w.kinds = make(map[Kind]bool, len(kinds))
		for _, k := range kinds {
			w.kinds[k] = true
		}
	}
}

// WithHTTPClient replaces the retrying client, mainly for tests.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		w.httpClient = c
	}
}

// NewWebhook creates a webhook hook posting to url.
//
// The retrying client uses 3 retries, 1-10 second linear jitter backoff and
// a 15 second per-attempt timeout; its internal logging goes to logger.
func NewWebhook(url string, logger *slog.Logger, opts ...WebhookOption) *Webhook {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 1 * time.Second
	retryClient.RetryWaitMax = 10 * time.Second
	retryClient.Backoff = retryablehttp.LinearJitterBackoff
	retryClient.Logger = logger.With(slog.String("component", "webhook"))
	retryClient.HTTPClient.Timeout = 15 * time.Second

	w := &Webhook{
		url:        url,
		httpClient: retryClient.StandardClient(),
		kinds:      map[Kind]bool{KindEnd: true, KindError: true},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Notify posts ev unless its kind is filtered out.
func (w *Webhook) Notify(ctx context.Context, ev Event) error {
	if !w.kinds[ev.Kind] {
		return nil
	}

	body, err := json.Marshal(NewPayload(ev))
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Sugicron-Event", string(ev.Kind))

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
