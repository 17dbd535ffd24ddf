// Package notify pushes real-time events to connected dashboard viewers.
// Delivery is best-effort: a slow or absent viewer never blocks the message
// pipeline.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event names pushed to dashboards.
const (
	EventNewMessage              = "new_message"
	EventConversationTransferred = "conversation_transferred"
	EventTokenLimitReached       = "token_limit_reached"
)

// Event is one dashboard notification.
type Event struct {
	ID        string          `json:"id"`
	CompanyID int32           `json:"company_id"`
	Name      string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	CreatedTs int64           `json:"created_ts"`
}

type subscriber struct {
	id        string
	companyID int32
	ch        chan *Event
}

// Hub fans events out to company-scoped subscribers.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*subscriber
}

// NewHub creates a new hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// Subscribe registers a viewer for companyID events. The returned channel is
// closed by Unsubscribe.
func (h *Hub) Subscribe(companyID int32) (id string, ch <-chan *Event) {
	sub := &subscriber{
		id:        uuid.New().String(),
		companyID: companyID,
		ch:        make(chan *Event, 16),
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	return sub.id, sub.ch
}

// Unsubscribe removes a viewer and closes its channel.
func (h *Hub) Unsubscribe(id string) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
	}
	h.mu.Unlock()

	if ok {
		close(sub.ch)
	}
}

// EmitToCompany delivers an event to every subscriber of companyID. Payloads
// that fail to marshal and subscribers with full buffers are dropped.
func (h *Hub) EmitToCompany(companyID int32, event string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("failed to marshal notification payload", "event", event, "error", err)
		return
	}

	e := &Event{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		Name:      event,
		Payload:   raw,
		CreatedTs: time.Now().Unix(),
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		if sub.companyID != companyID {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			// Viewer is not keeping up; drop rather than block.
		}
	}
}

// SubscriberCount reports how many viewers are connected for companyID.
func (h *Hub) SubscriberCount(companyID int32) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, sub := range h.subs {
		if sub.companyID == companyID {
			n++
		}
	}
	return n
}
