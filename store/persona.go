package store

// AgentPersona is a configured AI responder profile for a company.
// Read-mostly during message processing. At most one persona per company
// should be flagged default; the default is the final selection fallback.
type AgentPersona struct {
	ID              int32
	UID             string
	CompanyID       int32
	Name            string
	Personality     string
	TriggerKeywords []string
	Priority        int32
	IsDefault       bool
	IsActive        bool
	CanSell         bool
	CanNegotiate    bool
	TransferToHuman bool
	VoiceMode       bool
	CreatedTs       int64
}

type FindAgentPersona struct {
	ID        *int32
	CompanyID *int32
	IsActive  *bool
}

type UpdateAgentPersona struct {
	ID              int32
	Name            *string
	Personality     *string
	TriggerKeywords []string
	Priority        *int32
	IsDefault       *bool
	IsActive        *bool
}
