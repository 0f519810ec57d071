package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/use-agent/transwatch/config"
	"github.com/use-agent/transwatch/models"
)

// maxLoggedBody caps how much of a rejection body ends up in the logs.
const maxLoggedBody = 1024

// Notifier posts alerts to a Discord-compatible webhook.
// One Notify call is one POST: there is no retry.
type Notifier struct {
	URL    string
	Client *http.Client
}

// NewNotifier creates a Notifier from cfg. An empty URL yields a Notifier
// that never sends.
func NewNotifier(cfg config.WebhookConfig) *Notifier {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		URL:    cfg.URL,
		Client: &http.Client{Timeout: timeout},
	}
}

// Notify sends the alert for result and reports whether the endpoint
// answered 204 No Content. Every failure is logged and returned as false;
// Notify never panics.
func (n *Notifier) Notify(ctx context.Context, result models.CheckResult) (ok bool) {
	if n.URL == "" {
		slog.Error("discord webhook URL is not configured, skipping notification")
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			slog.Error("unexpected error sending discord notification", "panic", fmt.Sprint(r))
			ok = false
		}
	}()

	host := endpointHost(n.URL)

	body, err := json.Marshal(BuildPayload(result))
	if err != nil {
		slog.Error("failed to encode discord notification", "error", err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		slog.Error("failed to build discord notification request", "host", host, "error", err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "transwatch-webhook/1.0")

	client := n.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		slog.Error("error sending discord notification", "host", host, "error", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		slog.Info("discord notification sent",
			"host", host,
			"is_there_a_job", result.IsThereAJob,
			"elapsed", time.Since(start),
		)
		return true
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxLoggedBody))
	slog.Error("failed to send discord notification",
		"host", host,
		"status", resp.StatusCode,
		"body", string(respBody),
	)
	return false
}

// endpointHost keeps the webhook token out of the logs.
func endpointHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
