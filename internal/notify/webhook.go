package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bdrydyk/homebridge-securitysystem/internal/domain/security"
	"github.com/bdrydyk/homebridge-securitysystem/internal/logger"
	"github.com/bdrydyk/homebridge-securitysystem/internal/version"
)

// DefaultWebhookTimeout bounds a single webhook request.
const DefaultWebhookTimeout = 5 * time.Second

// ErrWebhookStatus is returned for non-2xx webhook responses.
var ErrWebhookStatus = errors.New("unexpected webhook status")

// WebhookOptions configures the webhook notifier.
type WebhookOptions struct {
	// Host is the URL prefix every path is appended to.
	Host string
	// Paths maps notifications to request paths.
	Paths Table
	// Timeout bounds each request.
	Timeout time.Duration
}

// Webhook sends an HTTP GET per notification.
type Webhook struct {
	opts   WebhookOptions
	client *http.Client
}

// NewWebhook creates a webhook notifier.
func NewWebhook(opts WebhookOptions) *Webhook {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultWebhookTimeout
	}

	return &Webhook{
		opts:   opts,
		client: &http.Client{Timeout: opts.Timeout},
	}
}

// Name implements Notifier.
func (w *Webhook) Name() string {
	return "webhook"
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, n security.Notification) error {
	path, ok := w.opts.Paths.Lookup(n)
	if !ok {
		return nil
	}

	url := strings.TrimRight(w.opts.Host, "/") + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("build request %s: %w", url, err)
	}

	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}

	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("%w: %s: %d", ErrWebhookStatus, url, resp.StatusCode)
	}

	logger.DebugKV(ctx, "Webhook event (Sent)", "url", url)

	return nil
}
