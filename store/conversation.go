package store

// ConversationStatus is the lifecycle status of a conversation.
// Status determines who is authorized to send outbound messages:
// the AI only when AI_HANDLING, operators when OPEN or HUMAN_HANDLING.
type ConversationStatus string

const (
	ConversationStatusOpen          ConversationStatus = "OPEN"
	ConversationStatusAIHandling    ConversationStatus = "AI_HANDLING"
	ConversationStatusHumanHandling ConversationStatus = "HUMAN_HANDLING"
	ConversationStatusClosed        ConversationStatus = "CLOSED"
)

// Conversation is a customer-company message thread, identified by the
// customer phone number within a company. Conversations are never hard-deleted
// by the pipeline; closing is a state, not a deletion.
type Conversation struct {
	ID            int32
	UID           string
	CompanyID     int32
	Phone         string
	Status        ConversationStatus
	BoundAgentID  *int32
	UnreadCount   int32
	LastMessageTs int64
	CreatedTs     int64
}

type FindConversation struct {
	ID        *int32
	UID       *string
	CompanyID *int32
	Phone     *string
	Status    *ConversationStatus
}

type UpdateConversation struct {
	ID            int32
	Status        *ConversationStatus
	BoundAgentID  *int32
	UnreadCount   *int32
	LastMessageTs *int64
}
