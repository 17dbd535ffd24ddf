package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/store"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PROMOÇÃO", "promocao"},
		{"  Tênis de Corrida  ", "tenis de corrida"},
		{"já chegou?", "ja chegou?"},
		{"hello", "hello"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in))
	}
}

func TestKeywordScore(t *testing.T) {
	normalized := Normalize("Oi, quero saber o preço da promoção de tênis")

	assert.Equal(t, 2, keywordScore(normalized, []string{"preço", "promoção"}))
	assert.Equal(t, 1, keywordScore(normalized, []string{"tenis", "camiseta"}))
	assert.Equal(t, 0, keywordScore(normalized, []string{"suporte", "defeito"}))
	assert.Equal(t, 0, keywordScore(normalized, []string{"", "   "}))
}

func TestChoose(t *testing.T) {
	sales := &store.AgentPersona{ID: 1, Name: "Vendas", TriggerKeywords: []string{"comprar", "preço", "promoção"}, Priority: 10}
	support := &store.AgentPersona{ID: 2, Name: "Suporte", TriggerKeywords: []string{"defeito", "troca", "garantia"}, Priority: 5}
	fallback := &store.AgentPersona{ID: 3, Name: "Geral", IsDefault: true, Priority: 1}

	tests := []struct {
		name       string
		personas   []*store.AgentPersona
		message    string
		wantID     int32
		wantReason string
	}{
		{
			name:       "no personas",
			personas:   nil,
			message:    "oi",
			wantReason: ReasonNoAgents,
		},
		{
			name:       "single persona wins regardless of keywords",
			personas:   []*store.AgentPersona{support},
			message:    "quero comprar",
			wantID:     2,
			wantReason: ReasonSingleAgent,
		},
		{
			name:       "keyword match picks highest score",
			personas:   []*store.AgentPersona{sales, support, fallback},
			message:    "qual o preço na promoção?",
			wantID:     1,
			wantReason: "keyword_match:2",
		},
		{
			name:       "accents do not break matching",
			personas:   []*store.AgentPersona{sales, support, fallback},
			message:    "PRECO da garantia estendida e troca",
			wantID:     2,
			wantReason: "keyword_match:2",
		},
		{
			name:       "no match falls back to default",
			personas:   []*store.AgentPersona{sales, support, fallback},
			message:    "bom dia",
			wantID:     3,
			wantReason: ReasonDefault,
		},
		{
			name: "no match and no default picks highest priority",
			personas: []*store.AgentPersona{
				{ID: 1, Priority: 2, TriggerKeywords: []string{"a"}},
				{ID: 2, Priority: 9, TriggerKeywords: []string{"b"}},
			},
			message:    "zzz",
			wantID:     2,
			wantReason: ReasonPriority,
		},
		{
			name: "score tie breaks on priority",
			personas: []*store.AgentPersona{
				{ID: 1, Priority: 1, TriggerKeywords: []string{"pedido"}},
				{ID: 2, Priority: 8, TriggerKeywords: []string{"pedido"}},
				{ID: 3, IsDefault: true},
			},
			message:    "cadê meu pedido",
			wantID:     2,
			wantReason: "keyword_match:1",
		},
		{
			name: "full tie breaks on lowest id",
			personas: []*store.AgentPersona{
				{ID: 4, Priority: 3, TriggerKeywords: []string{"pedido"}},
				{ID: 2, Priority: 3, TriggerKeywords: []string{"pedido"}},
			},
			message:    "meu pedido sumiu",
			wantID:     2,
			wantReason: "keyword_match:1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := Choose(tt.personas, tt.message)
			assert.Equal(t, tt.wantReason, sel.Reason)
			if tt.wantID == 0 {
				assert.Nil(t, sel.Persona)
			} else {
				require.NotNil(t, sel.Persona)
				assert.Equal(t, tt.wantID, sel.Persona.ID)
			}
		})
	}
}

func TestChooseDeterministic(t *testing.T) {
	personas := []*store.AgentPersona{
		{ID: 3, Priority: 3, TriggerKeywords: []string{"preço"}},
		{ID: 1, Priority: 3, TriggerKeywords: []string{"preço"}},
		{ID: 2, Priority: 3, TriggerKeywords: []string{"preço"}},
	}
	first := Choose(personas, "qual o preço?")
	for i := 0; i < 20; i++ {
		again := Choose(personas, "qual o preço?")
		assert.Equal(t, first.Persona.ID, again.Persona.ID)
		assert.Equal(t, first.Reason, again.Reason)
	}
	assert.Equal(t, int32(1), first.Persona.ID)
}

type fakePersonaStore struct {
	personas []*store.AgentPersona
	err      error
}

func (f *fakePersonaStore) ListAgentPersonas(_ context.Context, _ *store.FindAgentPersona) ([]*store.AgentPersona, error) {
	return f.personas, f.err
}

func TestSelectBestAgentStoreError(t *testing.T) {
	sel := NewSelector(&fakePersonaStore{err: assert.AnError})

	selection, err := sel.SelectBestAgent(context.Background(), 1, "oi")
	require.Error(t, err)
	assert.Equal(t, ReasonError, selection.Reason)
	assert.Nil(t, selection.Persona)
}
