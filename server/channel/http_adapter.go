package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/atendai/atendai/internal/retry"
)

const sendTimeout = 15 * time.Second

// HTTPAdapter talks to the channel gateway's REST API. Failed sends are
// retried with 2s, 4s, 8s backoff. Each session gets its own rate limiter so
// one noisy conversation cannot starve the rest.
type HTTPAdapter struct {
	baseURL string
	apiKey  string
	client  *http.Client
	retry   retry.Policy

	mu       sync.Mutex
	limiters map[string]*rate.Limiter

	// perSessionRate is the sustained outbound rate per session.
	perSessionRate rate.Limit
	burst          int
}

// NewHTTPAdapter creates a new HTTP channel adapter.
func NewHTTPAdapter(baseURL, apiKey string) *HTTPAdapter {
	return &HTTPAdapter{
		baseURL:        baseURL,
		apiKey:         apiKey,
		client:         &http.Client{Timeout: sendTimeout},
		retry:          retry.DefaultPolicy(),
		limiters:       make(map[string]*rate.Limiter),
		perSessionRate: rate.Every(time.Second),
		burst:          3,
	}
}

// SendText sends a plain text message.
func (a *HTTPAdapter) SendText(ctx context.Context, sessionID, phone, text string) error {
	return a.send(ctx, sessionID, "/api/messages/text", map[string]any{
		"session": sessionID,
		"phone":   phone,
		"text":    text,
	})
}

// SendAudio sends a voice message by URL.
func (a *HTTPAdapter) SendAudio(ctx context.Context, sessionID, phone, audioURL string) error {
	return a.send(ctx, sessionID, "/api/messages/audio", map[string]any{
		"session": sessionID,
		"phone":   phone,
		"audio":   audioURL,
	})
}

// SendFile sends a document.
func (a *HTTPAdapter) SendFile(ctx context.Context, sessionID, phone string, file *FilePayload) error {
	if file == nil {
		return errors.New("file payload is nil")
	}
	return a.send(ctx, sessionID, "/api/messages/file", map[string]any{
		"session":  sessionID,
		"phone":    phone,
		"url":      file.URL,
		"filename": file.FileName,
		"title":    file.DocumentTitle,
	})
}

func (a *HTTPAdapter) send(ctx context.Context, sessionID, path string, payload map[string]any) error {
	if err := a.limiter(sessionID).Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit wait aborted")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "failed to marshal payload")
	}

	policy := a.retry
	policy.OnRetry = func(attempt int, wait time.Duration, err error) {
		slog.Warn("channel send failed, retrying",
			"path", path,
			"attempt", attempt,
			"wait_time", wait,
			"error", err)
	}
	if err := policy.Do(ctx, func() error {
		return a.post(ctx, path, body)
	}); err != nil {
		return errors.Wrapf(err, "channel send failed after %d attempts", policy.MaxAttempts)
	}
	return nil
}

func (a *HTTPAdapter) post(ctx context.Context, path string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "failed to build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, snippet)
}

func (a *HTTPAdapter) limiter(sessionID string) *rate.Limiter {
	a.mu.Lock()
	defer a.mu.Unlock()

	l, ok := a.limiters[sessionID]
	if !ok {
		l = rate.NewLimiter(a.perSessionRate, a.burst)
		a.limiters[sessionID] = l
	}
	return l
}

var _ Adapter = (*HTTPAdapter)(nil)
