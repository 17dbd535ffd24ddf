package store

// MessageSender identifies who produced a message.
type MessageSender string

const (
	MessageSenderCustomer MessageSender = "CUSTOMER"
	MessageSenderAI       MessageSender = "AI"
	MessageSenderHuman    MessageSender = "HUMAN"
)

// MessageType is the media type of a message.
type MessageType string

const (
	MessageTypeText     MessageType = "TEXT"
	MessageTypeImage    MessageType = "IMAGE"
	MessageTypeAudio    MessageType = "AUDIO"
	MessageTypeVideo    MessageType = "VIDEO"
	MessageTypeDocument MessageType = "DOCUMENT"
	MessageTypeSticker  MessageType = "STICKER"
	MessageTypeLocation MessageType = "LOCATION"
)

// Message belongs to exactly one conversation. Immutable once created.
type Message struct {
	ID             int32
	UID            string
	ConversationID int32
	Sender         MessageSender
	Type           MessageType
	Content        string
	IsRead         bool
	CreatedTs      int64
}

type FindMessage struct {
	ID             *int32
	UID            *string
	ConversationID *int32
	Sender         *MessageSender

	// Limit caps the number of returned rows; newest first when set.
	Limit *int
}
