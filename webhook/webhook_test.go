package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/transwatch/config"
	"github.com/use-agent/transwatch/models"
)

var pending = models.CheckResult{
	TranslatedPercent: "87%",
	ApprovedPercent:   "90%",
	WordsToTranslate:  "42",
	IsThereAJob:       true,
}

// discordStub counts requests, captures the last body and answers status.
func discordStub(t *testing.T, status int) (*httptest.Server, *atomic.Int32, *[]byte) {
	t.Helper()
	var calls atomic.Int32
	var last []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		last, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		if status != http.StatusNoContent {
			_, _ = w.Write([]byte(`{"message": "Invalid Webhook Token", "code": 50027}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &calls, &last
}

func TestNotify_Accepted(t *testing.T) {
	srv, calls, body := discordStub(t, http.StatusNoContent)
	n := NewNotifier(config.WebhookConfig{URL: srv.URL, Timeout: time.Second})

	require.True(t, n.Notify(context.Background(), pending))
	assert.EqualValues(t, 1, calls.Load())

	var got Payload
	require.NoError(t, json.Unmarshal(*body, &got))
	require.Len(t, got.Embeds, 1)
	embed := got.Embeds[0]
	assert.Equal(t, ColorWarning, embed.Color)
	assert.Contains(t, embed.Title, "Translation Needed")
	require.Len(t, embed.Fields, 3)
	assert.Equal(t, "87%", embed.Fields[0].Value)
	assert.Equal(t, "90%", embed.Fields[1].Value)
	assert.Equal(t, "42", embed.Fields[2].Value)
	assert.Contains(t, string(*body), `"timestamp":null`)
}

func TestNotify_NoEndpointMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	n := NewNotifier(config.WebhookConfig{URL: ""})
	n.Client.Transport = roundTripFunc(func(*http.Request) (*http.Response, error) {
		calls.Add(1)
		return nil, errors.New("must not be called")
	})

	assert.False(t, n.Notify(context.Background(), pending))
	assert.EqualValues(t, 0, calls.Load())
}

func TestNotify_OnlyNoContentIsSuccess(t *testing.T) {
	for _, status := range []int{http.StatusOK, http.StatusBadRequest, http.StatusUnauthorized, http.StatusTooManyRequests, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv, calls, _ := discordStub(t, status)
			n := NewNotifier(config.WebhookConfig{URL: srv.URL, Timeout: time.Second})

			assert.False(t, n.Notify(context.Background(), pending))
			assert.EqualValues(t, 1, calls.Load(), "exactly one attempt, no retry")
		})
	}
}

func TestNotify_TransportErrors(t *testing.T) {
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	release := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer slow.Close()
	defer close(release)

	tests := []struct {
		name string
		n    *Notifier
	}{
		{"connection refused", NewNotifier(config.WebhookConfig{URL: closedURL, Timeout: time.Second})},
		{"timeout", NewNotifier(config.WebhookConfig{URL: slow.URL, Timeout: 50 * time.Millisecond})},
		{"malformed url", NewNotifier(config.WebhookConfig{URL: "://discord", Timeout: time.Second})},
		{"no scheme", NewNotifier(config.WebhookConfig{URL: "discord.com/api/webhooks/1/x", Timeout: time.Second})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, tt.n.Notify(context.Background(), pending))
		})
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestNotify_NeverPanics(t *testing.T) {
	n := &Notifier{
		URL: "https://discord.example/api/webhooks/1/token",
		Client: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			panic("transport exploded")
		})},
	}

	assert.NotPanics(t, func() {
		assert.False(t, n.Notify(context.Background(), pending))
	})
}

func TestNotify_SimulatedNetworkError(t *testing.T) {
	n := &Notifier{
		URL: "https://discord.example/api/webhooks/1/token",
		Client: &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
			return nil, errors.New("connection reset by peer")
		})},
	}

	assert.False(t, n.Notify(context.Background(), pending))
}

func TestBuildPayload_Variants(t *testing.T) {
	warn := BuildPayload(pending)
	assert.Equal(t, "🔧 **Bluesky Turkish Translation Update**", warn.Content)
	assert.Equal(t, "⚠️ Translation Needed", warn.Embeds[0].Title)
	assert.Equal(t, 0xFF9900, warn.Embeds[0].Color)

	done := BuildPayload(models.CheckResult{
		TranslatedPercent: "100%",
		ApprovedPercent:   "100%",
		WordsToTranslate:  "0",
	})
	assert.Equal(t, "✅ **Bluesky Turkish Translation Update**", done.Content)
	assert.Equal(t, "🎉 Translation Complete!", done.Embeds[0].Title)
	assert.Equal(t, 0x00FF00, done.Embeds[0].Color)
	assert.Equal(t, "Bluesky Crowdin Translation Monitor", done.Embeds[0].Footer.Text)

	fields := done.Embeds[0].Fields
	assert.True(t, fields[0].Inline)
	assert.True(t, fields[1].Inline)
	assert.False(t, fields[2].Inline)
}

func TestEndpointHost(t *testing.T) {
	assert.Equal(t, "discord.com", endpointHost("https://discord.com/api/webhooks/123/secret"))
	assert.Equal(t, "invalid", endpointHost("no-scheme"))
}
