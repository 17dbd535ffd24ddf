package store

import (
	"context"

	"github.com/atendai/atendai/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) CreateCompany(ctx context.Context, create *Company) (*Company, error) {
	return s.driver.CreateCompany(ctx, create)
}

func (s *Store) GetCompany(ctx context.Context, find *FindCompany) (*Company, error) {
	return s.driver.GetCompany(ctx, find)
}

func (s *Store) UpdateCompany(ctx context.Context, update *UpdateCompany) (*Company, error) {
	return s.driver.UpdateCompany(ctx, update)
}

func (s *Store) CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error) {
	return s.driver.CreateConversation(ctx, create)
}

func (s *Store) ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error) {
	return s.driver.ListConversations(ctx, find)
}

// GetConversation returns the single conversation matching find, or nil when
// none matches.
func (s *Store) GetConversation(ctx context.Context, find *FindConversation) (*Conversation, error) {
	list, err := s.driver.ListConversations(ctx, find)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (s *Store) UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error) {
	return s.driver.UpdateConversation(ctx, update)
}

func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	return s.driver.CreateMessage(ctx, create)
}

func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	return s.driver.ListMessages(ctx, find)
}

func (s *Store) CountMessages(ctx context.Context, conversationID int32) (int, error) {
	return s.driver.CountMessages(ctx, conversationID)
}

func (s *Store) CreateAgentPersona(ctx context.Context, create *AgentPersona) (*AgentPersona, error) {
	return s.driver.CreateAgentPersona(ctx, create)
}

func (s *Store) ListAgentPersonas(ctx context.Context, find *FindAgentPersona) ([]*AgentPersona, error) {
	return s.driver.ListAgentPersonas(ctx, find)
}

func (s *Store) UpdateAgentPersona(ctx context.Context, update *UpdateAgentPersona) (*AgentPersona, error) {
	return s.driver.UpdateAgentPersona(ctx, update)
}

func (s *Store) GetTokenUsage(ctx context.Context, find *FindTokenUsage) (*TokenUsage, error) {
	return s.driver.GetTokenUsage(ctx, find)
}

func (s *Store) UpsertTokenUsage(ctx context.Context, upsert *UpsertTokenUsage) (*TokenUsage, error) {
	return s.driver.UpsertTokenUsage(ctx, upsert)
}

func (s *Store) CreateProduct(ctx context.Context, create *Product) (*Product, error) {
	return s.driver.CreateProduct(ctx, create)
}

func (s *Store) ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error) {
	return s.driver.ListProducts(ctx, find)
}

func (s *Store) UpdateProduct(ctx context.Context, update *UpdateProduct) (*Product, error) {
	return s.driver.UpdateProduct(ctx, update)
}

func (s *Store) CreateOrder(ctx context.Context, create *Order) (*Order, error) {
	return s.driver.CreateOrder(ctx, create)
}

func (s *Store) ListOrders(ctx context.Context, find *FindOrder) ([]*Order, error) {
	return s.driver.ListOrders(ctx, find)
}

func (s *Store) UpdateOrder(ctx context.Context, update *UpdateOrder) (*Order, error) {
	return s.driver.UpdateOrder(ctx, update)
}

func (s *Store) CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error) {
	return s.driver.CreateAuditLog(ctx, create)
}

func (s *Store) ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error) {
	return s.driver.ListAuditLogs(ctx, find)
}
