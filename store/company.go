package store

// UnlimitedTokens is the plan sentinel meaning no monthly token cap.
const UnlimitedTokens int64 = -1

// Company is a tenant. PlanTokenLimit applies only while the subscription is
// active; companies without a subscription run on trial until TrialEndsTs.
type Company struct {
	ID                 int32
	UID                string
	Name               string
	Niche              string
	AIEnabled          bool
	SubscriptionActive bool
	PlanTokenLimit     int64
	TrialEndsTs        int64
	CreatedTs          int64
}

type FindCompany struct {
	ID  *int32
	UID *string
}

type UpdateCompany struct {
	ID             int32
	AIEnabled      *bool
	PlanTokenLimit *int64
}
