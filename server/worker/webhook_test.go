package worker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/store"
)

type captureQueue struct {
	jobs []*Job
}

func (q *captureQueue) Enqueue(_ context.Context, job *Job) error {
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *captureQueue) Start(_ context.Context, _ Handler) error { return nil }

func postWebhook(t *testing.T, h *WebhookHandler, body, apiKey string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if apiKey != "" {
		req.Header.Set("X-Api-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.Receive(c)
	if err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestWebhookReceive(t *testing.T) {
	q := &captureQueue{}
	h := NewWebhookHandler(q, "secret")

	rec := postWebhook(t, h, `{"session":"s1","from":"5511999990000@c.us","body":"oi","type":"text","timestamp":1756300000}`, "secret")
	assert.Equal(t, http.StatusAccepted, rec.Code)

	require.Len(t, q.jobs, 1)
	job := q.jobs[0]
	assert.Equal(t, "s1", job.SessionID)
	assert.Equal(t, "5511999990000@c.us", job.From)
	assert.Equal(t, store.MessageTypeText, job.Type)
	assert.Equal(t, int64(1756300000), job.Timestamp)
}

func TestWebhookRejectsBadAPIKey(t *testing.T) {
	q := &captureQueue{}
	h := NewWebhookHandler(q, "secret")

	rec := postWebhook(t, h, `{"session":"s1","from":"x"}`, "wrong")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, q.jobs)
}

func TestWebhookRejectsMissingFields(t *testing.T) {
	q := &captureQueue{}
	h := NewWebhookHandler(q, "")

	rec := postWebhook(t, h, `{"body":"oi"}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, q.jobs)
}

func TestMessageTypeMapping(t *testing.T) {
	assert.Equal(t, store.MessageTypeImage, messageType("image"))
	assert.Equal(t, store.MessageTypeAudio, messageType("AUDIO"))
	assert.Equal(t, store.MessageTypeText, messageType("chat"))
	assert.Equal(t, store.MessageTypeText, messageType(""))
}
