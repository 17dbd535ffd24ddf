package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"time"

	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/atendai/atendai/plugin/ai"
	"github.com/atendai/atendai/store"
)

// ExecutorStore is the store surface tool execution needs.
type ExecutorStore interface {
	ListProducts(ctx context.Context, find *store.FindProduct) ([]*store.Product, error)
	UpdateProduct(ctx context.Context, update *store.UpdateProduct) (*store.Product, error)
	CreateOrder(ctx context.Context, create *store.Order) (*store.Order, error)
	CreateAuditLog(ctx context.Context, create *store.AuditLog) (*store.AuditLog, error)
}

// BusinessExecutor implements the closed function set against the store.
type BusinessExecutor struct {
	store ExecutorStore
}

// NewBusinessExecutor creates a new executor.
func NewBusinessExecutor(s ExecutorStore) *BusinessExecutor {
	return &BusinessExecutor{store: s}
}

// Execute dispatches a function call by name. Unknown names return an error;
// the invoker reports it to the model instead of crashing the turn.
func (e *BusinessExecutor) Execute(ctx context.Context, companyID, conversationID int32, name string, args json.RawMessage) (*ai.ToolResult, error) {
	switch name {
	case ai.FuncSearchProduct:
		return e.searchProduct(ctx, companyID, args)
	case ai.FuncProcessSale:
		return e.processSale(ctx, companyID, conversationID, args)
	case ai.FuncTransferToHuman:
		return e.transferToHuman(args)
	case ai.FuncRegisterInterest:
		return e.registerInterest(ctx, companyID, conversationID, args)
	default:
		return nil, errors.Errorf("unknown function %q", name)
	}
}

type productView struct {
	ID        int32  `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Stock     int32  `json:"stock"`
	Available bool   `json:"available"`
	Desc      string `json:"description,omitempty"`
}

func (e *BusinessExecutor) searchProduct(ctx context.Context, companyID int32, args json.RawMessage) (*ai.ToolResult, error) {
	var in ai.SearchProductArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, errors.Wrap(err, "invalid buscarProduto arguments")
	}
	if in.Query == "" {
		return nil, errors.New("query is required")
	}

	active := true
	products, err := e.store.ListProducts(ctx, &store.FindProduct{
		CompanyID: &companyID,
		IsActive:  &active,
		Query:     &in.Query,
	})
	if err != nil {
		return nil, errors.Wrap(err, "product search failed")
	}

	if len(products) == 0 {
		return &ai.ToolResult{Content: `{"found": false}`}, nil
	}

	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{
			ID:        p.ID,
			Name:      p.Name,
			Price:     formatCents(p.PriceCents),
			Stock:     p.Stock,
			Available: p.Stock > 0,
			Desc:      p.Description,
		})
	}
	content, err := json.Marshal(map[string]any{"found": true, "products": views})
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal products")
	}

	result := &ai.ToolResult{Content: string(content)}
	// A single hit with an image gets the image attached to the reply.
	if len(products) == 1 && products[0].ImageURL != "" {
		result.FileURL = products[0].ImageURL
		result.FileName = attachmentName(products[0].ImageURL)
		result.DocumentTitle = products[0].Name
	}
	return result, nil
}

// attachmentName derives a file name from the attachment URL.
func attachmentName(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(rawURL)
}

func (e *BusinessExecutor) processSale(ctx context.Context, companyID, conversationID int32, args json.RawMessage) (*ai.ToolResult, error) {
	var in ai.ProcessSaleArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, errors.Wrap(err, "invalid processarVenda arguments")
	}
	if in.Quantity < 1 {
		in.Quantity = 1
	}

	products, err := e.store.ListProducts(ctx, &store.FindProduct{ID: &in.ProductID, CompanyID: &companyID})
	if err != nil {
		return nil, errors.Wrap(err, "product lookup failed")
	}
	if len(products) == 0 {
		return &ai.ToolResult{Content: `{"ok": false, "reason": "produto não encontrado"}`}, nil
	}
	product := products[0]
	if product.Stock < in.Quantity {
		return &ai.ToolResult{Content: fmt.Sprintf(`{"ok": false, "reason": "estoque insuficiente", "stock": %d}`, product.Stock)}, nil
	}

	total := product.PriceCents * int64(in.Quantity)
	order, err := e.store.CreateOrder(ctx, &store.Order{
		UID:            shortuuid.New(),
		CompanyID:      companyID,
		ConversationID: conversationID,
		Description:    fmt.Sprintf("%dx %s", in.Quantity, product.Name),
		AmountCents:    total,
		Status:         store.OrderStatusPending,
		CreatedTs:      time.Now().Unix(),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create order")
	}

	remaining := product.Stock - in.Quantity
	if _, err := e.store.UpdateProduct(ctx, &store.UpdateProduct{ID: product.ID, Stock: &remaining}); err != nil {
		return nil, errors.Wrap(err, "failed to update stock")
	}

	e.audit(ctx, companyID, store.AuditOrderCreated, "Order", order.ID, map[string]any{
		"conversation_id": conversationID,
		"amount_cents":    total,
	})

	content, _ := json.Marshal(map[string]any{
		"ok":       true,
		"order_id": order.ID,
		"total":    formatCents(total),
	})
	return &ai.ToolResult{Content: string(content)}, nil
}

func (e *BusinessExecutor) transferToHuman(args json.RawMessage) (*ai.ToolResult, error) {
	var in ai.TransferToHumanArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, errors.Wrap(err, "invalid transferirParaHumano arguments")
	}
	// The state transition itself is driven by the worker off the
	// WasTransferred flag; here we only acknowledge to the model.
	return &ai.ToolResult{Content: `{"ok": true, "status": "transferido"}`}, nil
}

func (e *BusinessExecutor) registerInterest(ctx context.Context, companyID, conversationID int32, args json.RawMessage) (*ai.ToolResult, error) {
	var in ai.RegisterInterestArgs
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, errors.Wrap(err, "invalid registrarInteresse arguments")
	}
	if in.ProductName == "" {
		return nil, errors.New("product_name is required")
	}

	e.audit(ctx, companyID, store.AuditInterestRegistered, "Conversation", conversationID, map[string]any{
		"product_name": in.ProductName,
		"note":         in.Note,
	})
	return &ai.ToolResult{Content: `{"ok": true}`}, nil
}

// audit is fire-and-forget; failures never surface to the model turn.
func (e *BusinessExecutor) audit(ctx context.Context, companyID int32, action, entity string, entityID int32, details map[string]any) {
	detailsJSON, _ := json.Marshal(details)
	_, _ = e.store.CreateAuditLog(ctx, &store.AuditLog{
		CompanyID: companyID,
		Action:    action,
		Entity:    entity,
		EntityID:  entityID,
		Actor:     "ai",
		Details:   string(detailsJSON),
		CreatedTs: time.Now().Unix(),
	})
}

func formatCents(cents int64) string {
	return fmt.Sprintf("R$ %d,%02d", cents/100, cents%100)
}

var _ ai.ToolExecutor = (*BusinessExecutor)(nil)
