package store

// TokenUsage accumulates AI token consumption for one company in one
// calendar month (UTC, "YYYY-MM"). One row per company per month.
type TokenUsage struct {
	ID           int32
	CompanyID    int32
	Month        string
	InputTokens  int64
	OutputTokens int64
	UpdatedTs    int64
}

type FindTokenUsage struct {
	CompanyID *int32
	Month     *string
}

// UpsertTokenUsage adds the given token deltas to the (company, month) row,
// creating it when absent. The operation is a single atomic accumulate so a
// turn is never double counted by concurrent workers.
type UpsertTokenUsage struct {
	CompanyID    int32
	Month        string
	InputTokens  int64
	OutputTokens int64
	UpdatedTs    int64
}
