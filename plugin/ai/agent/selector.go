// Package agent selects which persona answers an inbound message. Selection
// is keyword driven and fully deterministic so the same message always lands
// on the same persona.
package agent

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/atendai/atendai/store"
)

// Selection reasons, recorded in logs for every routed message.
const (
	ReasonNoAgents    = "no_agents"
	ReasonSingleAgent = "single_agent"
	ReasonDefault     = "default"
	ReasonPriority    = "priority"
	ReasonError       = "error"
	// keyword matches use "keyword_match:<score>", see Selection.Reason.
)

// Selection is the outcome of persona selection. Persona is nil when the
// company has no active personas.
type Selection struct {
	Persona *store.AgentPersona
	Reason  string
}

// PersonaStore is the store surface the selector needs.
type PersonaStore interface {
	ListAgentPersonas(ctx context.Context, find *store.FindAgentPersona) ([]*store.AgentPersona, error)
}

// Selector picks the best persona for an inbound message.
type Selector struct {
	store PersonaStore
}

// NewSelector creates a new selector.
func NewSelector(s PersonaStore) *Selector {
	return &Selector{store: s}
}

// SelectBestAgent picks the persona for companyID that best matches the
// message.
func (s *Selector) SelectBestAgent(ctx context.Context, companyID int32, message string) (*Selection, error) {
	active := true
	personas, err := s.store.ListAgentPersonas(ctx, &store.FindAgentPersona{
		CompanyID: &companyID,
		IsActive:  &active,
	})
	if err != nil {
		return &Selection{Reason: ReasonError}, err
	}
	return Choose(personas, message), nil
}

// Choose picks the persona that best matches the message. Keyword scores win
// over everything else; ties break on higher priority, then lowest persona
// ID. With no keyword hits the default persona is used, falling back to the
// highest priority one. The result depends only on the inputs.
func Choose(personas []*store.AgentPersona, message string) *Selection {
	if len(personas) == 0 {
		return &Selection{Reason: ReasonNoAgents}
	}
	if len(personas) == 1 {
		return &Selection{Persona: personas[0], Reason: ReasonSingleAgent}
	}

	// Deterministic iteration order regardless of how the store returns rows.
	sorted := make([]*store.AgentPersona, len(personas))
	copy(sorted, personas)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	normalized := Normalize(message)

	best := sorted[0]
	bestScore := 0
	for _, persona := range sorted {
		score := keywordScore(normalized, persona.TriggerKeywords)
		if score > bestScore || (score == bestScore && score > 0 && persona.Priority > best.Priority) {
			best = persona
			bestScore = score
		}
	}

	if bestScore > 0 {
		return &Selection{
			Persona: best,
			Reason:  fmt.Sprintf("keyword_match:%d", bestScore),
		}
	}

	if def := defaultPersona(sorted); def != nil {
		return &Selection{Persona: def, Reason: ReasonDefault}
	}
	return &Selection{Persona: highestPriority(sorted), Reason: ReasonPriority}
}

// keywordScore counts how many of the persona's trigger keywords appear in
// the normalized message.
func keywordScore(normalized string, keywords []string) int {
	score := 0
	for _, kw := range keywords {
		kw = Normalize(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(normalized, kw) {
			score++
		}
	}
	return score
}

func defaultPersona(personas []*store.AgentPersona) *store.AgentPersona {
	for _, p := range personas {
		if p.IsDefault {
			return p
		}
	}
	return nil
}

func highestPriority(personas []*store.AgentPersona) *store.AgentPersona {
	best := personas[0]
	for _, p := range personas[1:] {
		if p.Priority > best.Priority {
			best = p
		}
	}
	return best
}

var stripDiacritics = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases the text and strips diacritics, so "PROMOÇÃO"
// matches the keyword "promocao".
func Normalize(text string) string {
	stripped, _, err := transform.String(stripDiacritics, text)
	if err != nil {
		stripped = text
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}
