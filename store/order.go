package store

// OrderStatus is the payment status of an order.
type OrderStatus string

const (
	OrderStatusPending     OrderStatus = "PENDING"
	OrderStatusUnderReview OrderStatus = "UNDER_REVIEW"
	OrderStatusPaid        OrderStatus = "PAID"
	OrderStatusCancelled   OrderStatus = "CANCELLED"
)

// Order is a sale initiated in a conversation. A PENDING order makes an
// incoming image eligible for the payment-proof short-circuit.
type Order struct {
	ID             int32
	UID            string
	CompanyID      int32
	ConversationID int32
	Description    string
	AmountCents    int64
	Status         OrderStatus
	CreatedTs      int64
}

type FindOrder struct {
	ID             *int32
	CompanyID      *int32
	ConversationID *int32
	Status         *OrderStatus
}

type UpdateOrder struct {
	ID     int32
	Status *OrderStatus
}
