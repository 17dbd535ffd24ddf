package worker

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendai/atendai/plugin/ai"
	"github.com/atendai/atendai/store"
)

func TestExecutorSearchProduct(t *testing.T) {
	fs := newFakeStore(testCompany())
	fs.products = []*store.Product{
		{ID: 5, CompanyID: 1, Name: "Camisa Polo", PriceCents: 19990, Stock: 3, ImageURL: "https://cdn.example.com/polo.jpg", IsActive: true},
	}
	e := NewBusinessExecutor(fs)

	result, err := e.Execute(context.Background(), 1, 1, ai.FuncSearchProduct, json.RawMessage(`{"query":"polo"}`))
	require.NoError(t, err)
	assert.Contains(t, result.Content, `"found":true`)
	assert.Contains(t, result.Content, "R$ 199,90")
	assert.Equal(t, "https://cdn.example.com/polo.jpg", result.FileURL)
	assert.Equal(t, "polo.jpg", result.FileName)
	assert.Equal(t, "Camisa Polo", result.DocumentTitle)
}

func TestExecutorSearchProductNotFound(t *testing.T) {
	e := NewBusinessExecutor(newFakeStore(testCompany()))

	result, err := e.Execute(context.Background(), 1, 1, ai.FuncSearchProduct, json.RawMessage(`{"query":"inexistente"}`))
	require.NoError(t, err)
	assert.Contains(t, result.Content, `"found": false`)
	assert.Empty(t, result.FileURL)
}

func TestExecutorProcessSale(t *testing.T) {
	fs := newFakeStore(testCompany())
	fs.products = []*store.Product{
		{ID: 5, CompanyID: 1, Name: "Camisa Polo", PriceCents: 19990, Stock: 3, IsActive: true},
	}
	e := NewBusinessExecutor(fs)

	result, err := e.Execute(context.Background(), 1, 7, ai.FuncProcessSale, json.RawMessage(`{"product_id":5,"quantity":2}`))
	require.NoError(t, err)
	assert.Contains(t, result.Content, `"ok":true`)
	assert.Contains(t, result.Content, "R$ 399,80")

	require.Len(t, fs.orders, 1)
	for _, o := range fs.orders {
		assert.Equal(t, store.OrderStatusPending, o.Status)
		assert.Equal(t, int64(39980), o.AmountCents)
		assert.Equal(t, int32(7), o.ConversationID)
	}
	assert.Contains(t, fs.auditActions(), store.AuditOrderCreated)
}

func TestExecutorRegisterInterest(t *testing.T) {
	fs := newFakeStore(testCompany())
	e := NewBusinessExecutor(fs)

	result, err := e.Execute(context.Background(), 1, 7, ai.FuncRegisterInterest, json.RawMessage(`{"product_name":"tênis azul"}`))
	require.NoError(t, err)
	assert.Contains(t, result.Content, `"ok": true`)
	assert.Contains(t, fs.auditActions(), store.AuditInterestRegistered)
}

func TestExecutorUnknownFunction(t *testing.T) {
	e := NewBusinessExecutor(newFakeStore(testCompany()))

	_, err := e.Execute(context.Background(), 1, 1, "apagarBanco", json.RawMessage(`{}`))
	require.Error(t, err)
}
