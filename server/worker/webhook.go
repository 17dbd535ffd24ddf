package worker

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/atendai/atendai/store"
)

// webhookPayload is the channel gateway's inbound message callback.
type webhookPayload struct {
	Session   string `json:"session"`
	From      string `json:"from"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

// WebhookHandler receives inbound messages from the channel gateway and
// feeds them to the queue. It is the queue's only producer.
type WebhookHandler struct {
	queue  Queue
	apiKey string
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(queue Queue, apiKey string) *WebhookHandler {
	return &WebhookHandler{queue: queue, apiKey: apiKey}
}

// Register mounts the webhook endpoint on the echo group.
func (h *WebhookHandler) Register(g *echo.Group) {
	g.POST("/webhook/messages", h.Receive)
}

// Receive handles POST /webhook/messages. Returns 202 once the job is
// queued; processing happens asynchronously.
func (h *WebhookHandler) Receive(c echo.Context) error {
	if h.apiKey != "" && c.Request().Header.Get("X-Api-Key") != h.apiKey {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
	}

	var payload webhookPayload
	if err := c.Bind(&payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}
	if payload.Session == "" || payload.From == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "session and from are required")
	}
	if payload.Timestamp == 0 {
		payload.Timestamp = time.Now().Unix()
	}

	job := &Job{
		SessionID: payload.Session,
		From:      payload.From,
		Body:      payload.Body,
		Type:      messageType(payload.Type),
		Timestamp: payload.Timestamp,
	}
	if err := h.queue.Enqueue(c.Request().Context(), job); err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "queue unavailable")
	}
	return c.NoContent(http.StatusAccepted)
}

func messageType(raw string) store.MessageType {
	switch store.MessageType(strings.ToUpper(raw)) {
	case store.MessageTypeImage:
		return store.MessageTypeImage
	case store.MessageTypeAudio:
		return store.MessageTypeAudio
	case store.MessageTypeVideo:
		return store.MessageTypeVideo
	case store.MessageTypeDocument:
		return store.MessageTypeDocument
	case store.MessageTypeSticker:
		return store.MessageTypeSticker
	case store.MessageTypeLocation:
		return store.MessageTypeLocation
	default:
		return store.MessageTypeText
	}
}
