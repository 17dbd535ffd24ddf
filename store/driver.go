package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a database driver must implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Company model related methods.
	CreateCompany(ctx context.Context, create *Company) (*Company, error)
	GetCompany(ctx context.Context, find *FindCompany) (*Company, error)
	UpdateCompany(ctx context.Context, update *UpdateCompany) (*Company, error)

	// Conversation model related methods.
	CreateConversation(ctx context.Context, create *Conversation) (*Conversation, error)
	ListConversations(ctx context.Context, find *FindConversation) ([]*Conversation, error)
	UpdateConversation(ctx context.Context, update *UpdateConversation) (*Conversation, error)

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	CountMessages(ctx context.Context, conversationID int32) (int, error)

	// AgentPersona model related methods.
	CreateAgentPersona(ctx context.Context, create *AgentPersona) (*AgentPersona, error)
	ListAgentPersonas(ctx context.Context, find *FindAgentPersona) ([]*AgentPersona, error)
	UpdateAgentPersona(ctx context.Context, update *UpdateAgentPersona) (*AgentPersona, error)

	// TokenUsage model related methods.
	GetTokenUsage(ctx context.Context, find *FindTokenUsage) (*TokenUsage, error)
	UpsertTokenUsage(ctx context.Context, upsert *UpsertTokenUsage) (*TokenUsage, error)

	// Product model related methods.
	CreateProduct(ctx context.Context, create *Product) (*Product, error)
	ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error)
	UpdateProduct(ctx context.Context, update *UpdateProduct) (*Product, error)

	// Order model related methods.
	CreateOrder(ctx context.Context, create *Order) (*Order, error)
	ListOrders(ctx context.Context, find *FindOrder) ([]*Order, error)
	UpdateOrder(ctx context.Context, update *UpdateOrder) (*Order, error)

	// AuditLog model related methods.
	CreateAuditLog(ctx context.Context, create *AuditLog) (*AuditLog, error)
	ListAuditLogs(ctx context.Context, find *FindAuditLog) ([]*AuditLog, error)
}
