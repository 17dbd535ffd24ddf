package store

// Product is a catalog item the AI can look up and sell. Prices are stored
// in cents to avoid float drift.
type Product struct {
	ID          int32
	UID         string
	CompanyID   int32
	Name        string
	Description string
	PriceCents  int64
	Stock       int32
	ImageURL    string
	IsActive    bool
	CreatedTs   int64
}

type FindProduct struct {
	ID        *int32
	CompanyID *int32
	IsActive  *bool

	// Query matches name or description, case-insensitive substring.
	Query *string
}

type UpdateProduct struct {
	ID         int32
	PriceCents *int64
	Stock      *int32
	IsActive   *bool
}
