// Package conversation owns the conversation lifecycle state machine.
// Every transition is guarded by the allowed-transition table and emits an
// audit record; audit failures never fail the transition itself.
package conversation

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/atendai/atendai/store"
)

// ErrInvalidTransition is returned when a transition is not allowed from the
// conversation's current status.
var ErrInvalidTransition = errors.New("invalid conversation status transition")

// ActorSystem is the actor recorded for pipeline-driven transitions.
const ActorSystem = "system"

// ConversationStore is the store surface the service needs.
type ConversationStore interface {
	GetConversation(ctx context.Context, find *store.FindConversation) (*store.Conversation, error)
	CreateConversation(ctx context.Context, create *store.Conversation) (*store.Conversation, error)
	UpdateConversation(ctx context.Context, update *store.UpdateConversation) (*store.Conversation, error)
	CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error)
}

// Notifier receives best-effort lifecycle events for dashboard streaming.
type Notifier interface {
	EmitToCompany(companyID int32, event string, payload any)
}

// EventConversationUpdated is emitted after every successful transition.
const EventConversationUpdated = "conversation_updated"

// Service drives conversation lifecycle transitions.
type Service struct {
	store    ConversationStore
	notifier Notifier
}

// NewService creates a new conversation service.
func NewService(s ConversationStore) *Service {
	return &Service{store: s}
}

// WithNotifier attaches a notifier for transition events and returns the
// service for chaining.
func (s *Service) WithNotifier(n Notifier) *Service {
	s.notifier = n
	return s
}

// InitialStatus is the status a newly created conversation starts in. The
// assistant owns new inquiries unless the company disabled AI globally.
func InitialStatus(aiEnabled bool) store.ConversationStatus {
	if aiEnabled {
		return store.ConversationStatusAIHandling
	}
	return store.ConversationStatusOpen
}

// allowed maps each transition action to the statuses it may start from.
var allowed = map[string][]store.ConversationStatus{
	store.AuditConversationTransferred: {store.ConversationStatusAIHandling, store.ConversationStatusOpen},
	store.AuditConversationReturned:    {store.ConversationStatusHumanHandling},
	store.AuditConversationClosed: {
		store.ConversationStatusOpen,
		store.ConversationStatusAIHandling,
		store.ConversationStatusHumanHandling,
	},
	store.AuditConversationReopened: {store.ConversationStatusClosed},
}

// TakeOver moves a conversation to HUMAN_HANDLING.
func (s *Service) TakeOver(ctx context.Context, conv *store.Conversation, actor string) (*store.Conversation, error) {
	return s.transition(ctx, conv, store.ConversationStatusHumanHandling, store.AuditConversationTransferred, actor)
}

// ReturnToAI hands a human-handled conversation back to the assistant.
func (s *Service) ReturnToAI(ctx context.Context, conv *store.Conversation, actor string) (*store.Conversation, error) {
	return s.transition(ctx, conv, store.ConversationStatusAIHandling, store.AuditConversationReturned, actor)
}

// Close closes a conversation. Closing is a state, not a deletion.
func (s *Service) Close(ctx context.Context, conv *store.Conversation, actor string) (*store.Conversation, error) {
	return s.transition(ctx, conv, store.ConversationStatusClosed, store.AuditConversationClosed, actor)
}

// Reopen explicitly reopens a closed conversation for AI handling.
func (s *Service) Reopen(ctx context.Context, conv *store.Conversation, actor string) (*store.Conversation, error) {
	return s.transition(ctx, conv, store.ConversationStatusAIHandling, store.AuditConversationReopened, actor)
}

// FindOrCreate returns the conversation for (companyID, phone), creating it
// in the initial status when the phone was never seen before. A closed
// conversation is reopened rather than left to swallow the inbound message.
func (s *Service) FindOrCreate(ctx context.Context, companyID int32, phone string, aiEnabled bool) (*store.Conversation, bool, error) {
	conv, err := s.store.GetConversation(ctx, &store.FindConversation{
		CompanyID: &companyID,
		Phone:     &phone,
	})
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to find conversation")
	}

	if conv == nil {
		created, err := s.store.CreateConversation(ctx, &store.Conversation{
			CompanyID: companyID,
			Phone:     phone,
			Status:    InitialStatus(aiEnabled),
		})
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to create conversation")
		}
		s.audit(ctx, created, store.AuditConversationCreated, ActorSystem, nil)
		return created, true, nil
	}

	if conv.Status == store.ConversationStatusClosed {
		reopened, err := s.Reopen(ctx, conv, ActorSystem)
		if err != nil {
			return nil, false, errors.Wrap(err, "failed to reopen conversation")
		}
		return reopened, false, nil
	}
	return conv, false, nil
}

// BindAgent binds the selected persona to the conversation.
func (s *Service) BindAgent(ctx context.Context, conv *store.Conversation, agentID int32) (*store.Conversation, error) {
	updated, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:           conv.ID,
		BoundAgentID: &agentID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to bind agent")
	}
	return updated, nil
}

// RecordInbound bumps the unread counter and last-message timestamp after an
// inbound message is persisted.
func (s *Service) RecordInbound(ctx context.Context, conv *store.Conversation, receivedTs int64) (*store.Conversation, error) {
	unread := conv.UnreadCount + 1
	updated, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:            conv.ID,
		UnreadCount:   &unread,
		LastMessageTs: &receivedTs,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to record inbound message")
	}
	return updated, nil
}

func (s *Service) transition(ctx context.Context, conv *store.Conversation, to store.ConversationStatus, action, actor string) (*store.Conversation, error) {
	if conv == nil {
		return nil, errors.New("conversation is nil")
	}
	if !transitionAllowed(action, conv.Status) {
		return nil, errors.Wrapf(ErrInvalidTransition, "%s from %s", action, conv.Status)
	}

	updated, err := s.store.UpdateConversation(ctx, &store.UpdateConversation{
		ID:     conv.ID,
		Status: &to,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to transition conversation %d to %s", conv.ID, to)
	}

	s.audit(ctx, updated, action, actor, map[string]any{
		"from": string(conv.Status),
		"to":   string(to),
	})
	if s.notifier != nil {
		s.notifier.EmitToCompany(updated.CompanyID, EventConversationUpdated, map[string]any{
			"conversation_id": updated.ID,
			"status":          string(to),
			"actor":           actor,
		})
	}
	return updated, nil
}

func transitionAllowed(action string, from store.ConversationStatus) bool {
	for _, status := range allowed[action] {
		if status == from {
			return true
		}
	}
	return false
}

// audit writes the audit record for a transition. Failures are logged and
// swallowed; auditing must never affect conversation delivery.
func (s *Service) audit(ctx context.Context, conv *store.Conversation, action, actor string, details map[string]any) {
	var detailsJSON string
	if details != nil {
		if raw, err := json.Marshal(details); err == nil {
			detailsJSON = string(raw)
		}
	}

	_, err := s.store.CreateAuditLog(ctx, &store.AuditLog{
		CompanyID: conv.CompanyID,
		Action:    action,
		Entity:    "Conversation",
		EntityID:  conv.ID,
		Actor:     actor,
		Details:   detailsJSON,
		CreatedTs: time.Now().Unix(),
	})
	if err != nil {
		slog.Warn("failed to write audit log",
			"action", action,
			"conversation_id", conv.ID,
			"error", err)
	}
}
