package store

// Audit actions emitted by the pipeline.
const (
	AuditConversationCreated     = "CONVERSATION_CREATED"
	AuditConversationTransferred = "CONVERSATION_TRANSFERRED"
	AuditConversationReturned    = "CONVERSATION_RETURNED_TO_AI"
	AuditConversationClosed      = "CONVERSATION_CLOSED"
	AuditConversationReopened    = "CONVERSATION_REOPENED"
	AuditOrderUnderReview        = "ORDER_PAYMENT_UNDER_REVIEW"
	AuditOrderCreated            = "ORDER_CREATED"
	AuditInterestRegistered      = "CUSTOMER_INTEREST_REGISTERED"
	AuditTokenLimitReached       = "TOKEN_LIMIT_REACHED"
)

// AuditLog records a pipeline action against an entity. Writing audit logs is
// always fire-and-forget from the caller's perspective.
type AuditLog struct {
	ID        int32
	CompanyID int32
	Action    string
	Entity    string
	EntityID  int32
	Actor     string
	Details   string // JSON
	CreatedTs int64
}

type FindAuditLog struct {
	CompanyID *int32
	Action    *string
	Limit     *int
}
