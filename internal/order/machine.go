// Package order implements the deterministic state machine that captures
// multi-step purchases without involving the language model.
package order

import (
	"context"
	"strconv"

	"github.com/atendeai/core/internal/erp"
	"github.com/atendeai/core/internal/intent"
	"github.com/atendeai/core/internal/reply"
	"github.com/atendeai/core/internal/session"
	logx "github.com/atendeai/core/pkg/logger"
)

// Machine drives one order flow turn. It holds no per-conversation state;
// the draft order session flows in and out of Handle.
type Machine struct {
	erp       erp.Client
	templates map[string]string
}

// NewMachine builds a machine bound to a tenant's ERP client and templates.
func NewMachine(client erp.Client, templates map[string]string) *Machine {
	return &Machine{erp: client, templates: templates}
}

// Result is the outcome of one order flow turn. Order is the next draft to
// persist; Completed marks turns that finished or cancelled the flow, in
// which case Order is already a fresh idle session.
type Result struct {
	Reply     string
	Order     session.OrderSession
	Completed bool
}

// Handle advances the order flow by one turn. User input problems are
// recovered by re-prompting and collaborator failures by state-preserving
// apologies; Handle never returns an error.
func (m *Machine) Handle(ctx context.Context, text string, label intent.Label, draft session.OrderSession, lastProduct *erp.Product) Result {
	switch draft.State {
	case session.OrderAwaitingCPF:
		return m.handleDocument(ctx, text, draft)
	case session.OrderAwaitingQuantity:
		return m.handleQuantity(text, draft)
	case session.OrderAwaitingConfirmation:
		return m.handleConfirmation(ctx, text, label, draft)
	default:
		return m.handleStart(text, label, draft, lastProduct)
	}
}

func (m *Machine) handleStart(text string, label intent.Label, draft session.OrderSession, lastProduct *erp.Product) Result {
	product := draft.Product
	if product == nil {
		product = lastProduct
	}
	if product == nil {
		return Result{
			Reply: m.render(reply.KeyAskProduct, nil),
			Order: draft,
		}
	}

	if product.Available <= 0 {
		return m.outOfStock(product.Name)
	}

	draft.Product = product

	if label == intent.StartOrderWithQuantity {
		if qty, ok := intent.ExtractQuantity(text); ok {
			if qty > product.Available {
				return m.clampToStock(draft, qty)
			}
			draft.Quantity = qty
			draft.State = session.OrderAwaitingCPF
			total := product.UnitPrice() * float64(qty)
			return Result{
				Reply: m.render(reply.KeyQuantityNoted, map[string]string{
					"quantidade": strconv.Itoa(qty),
					"produto":    product.Name,
					"total":      reply.FormatBRL(total),
				}),
				Order: draft,
			}
		}
	}

	draft.State = session.OrderAwaitingCPF
	return Result{
		Reply: m.render(reply.KeyAskDocument, nil),
		Order: draft,
	}
}

func (m *Machine) handleDocument(ctx context.Context, text string, draft session.OrderSession) Result {
	doc, ok := intent.ExtractDocument(text)
	if !ok {
		return Result{
			Reply: m.render(reply.KeyInvalidDocument, nil),
			Order: draft,
		}
	}

	res, err := m.erp.ValidateCustomer(ctx, doc)
	if err != nil {
		logx.Error().Err(err).Msg("customer validation call failed")
		return Result{
			Reply: m.render(reply.KeyValidationRetry, nil),
			Order: draft,
		}
	}

	switch res.Status {
	case erp.ValidationBlocked:
		reason := res.Reason
		if reason == "" {
			reason = "cadastro bloqueado"
		}
		return Result{
			Reply: m.render(reply.KeyCustomerBlocked, map[string]string{"motivo": reason}),
			Order: session.NewOrderSession(),
		}
	case erp.ValidationValid:
		draft.Document = doc
		draft.CustomerName = res.CustomerName
		if draft.Quantity > 0 {
			draft.State = session.OrderAwaitingConfirmation
			return Result{
				Reply: m.summary(draft),
				Order: draft,
			}
		}
		draft.State = session.OrderAwaitingQuantity
		return Result{
			Reply: m.render(reply.KeyAskQuantity, map[string]string{
				"cliente": res.CustomerName,
				"produto": draft.Product.Name,
			}),
			Order: draft,
		}
	default:
		return Result{
			Reply: m.render(reply.KeyCustomerNotFound, nil),
			Order: draft,
		}
	}
}

func (m *Machine) handleQuantity(text string, draft session.OrderSession) Result {
	qty, ok := intent.ExtractQuantity(text)
	if !ok {
		return Result{
			Reply: m.render(reply.KeyInvalidQuantity, nil),
			Order: draft,
		}
	}

	if qty > draft.Product.Available {
		return m.clampToStock(draft, qty)
	}

	draft.Quantity = qty
	draft.State = session.OrderAwaitingConfirmation
	return Result{
		Reply: m.summary(draft),
		Order: draft,
	}
}

func (m *Machine) handleConfirmation(ctx context.Context, text string, label intent.Label, draft session.OrderSession) Result {
	switch label {
	case intent.Confirm:
		return m.submit(ctx, draft)
	case intent.Deny:
		return Result{
			Reply:     m.render(reply.KeyOrderCancelled, nil),
			Order:     session.NewOrderSession(),
			Completed: true,
		}
	default:
		return Result{
			Reply: m.render(reply.KeyAskYesNo, nil),
			Order: draft,
		}
	}
}

// submit calls Order Submission and resets the flow regardless of outcome.
// A failure is acknowledged without exposing the failure detail.
func (m *Machine) submit(ctx context.Context, draft session.OrderSession) Result {
	items := []erp.OrderItem{{
		SKU:       draft.Product.SKU,
		Quantity:  draft.Quantity,
		UnitPrice: draft.Product.UnitPrice(),
	}}

	receipt, err := m.erp.SubmitOrder(ctx, draft.Document, draft.CustomerName, items)
	if err != nil {
		logx.Error().Err(err).
			Str("sku", draft.Product.SKU).
			Msg("order submission call failed")
		return Result{
			Reply:     m.render(reply.KeyOrderFallback, nil),
			Order:     session.NewOrderSession(),
			Completed: true,
		}
	}

	return Result{
		Reply: m.render(reply.KeyOrderSuccess, map[string]string{
			"pedido":   receipt.OrderID,
			"mensagem": receipt.Message,
		}),
		Order:     session.NewOrderSession(),
		Completed: true,
	}
}

// outOfStock ends the flow when the product has nothing to sell. A zero
// quantity must never reach confirmation or submission.
func (m *Machine) outOfStock(productName string) Result {
	return Result{
		Reply:     m.render(reply.KeyOutOfStock, map[string]string{"produto": productName}),
		Order:     session.NewOrderSession(),
		Completed: true,
	}
}

// clampToStock stores the available quantity, notifies the customer and
// moves straight to confirmation. The stored quantity never exceeds stock
// and is always positive.
func (m *Machine) clampToStock(draft session.OrderSession, requested int) Result {
	available := draft.Product.Available
	if available <= 0 {
		return m.outOfStock(draft.Product.Name)
	}
	draft.Quantity = available
	draft.State = session.OrderAwaitingConfirmation
	total := draft.Product.UnitPrice() * float64(available)
	logx.Debug().Int("requested", requested).Int("available", available).
		Str("sku", draft.Product.SKU).Msg("order quantity clamped to stock")
	return Result{
		Reply: m.render(reply.KeyStockClamped, map[string]string{
			"estoque":    strconv.Itoa(available),
			"produto":    draft.Product.Name,
			"quantidade": strconv.Itoa(available),
			"total":      reply.FormatBRL(total),
		}),
		Order: draft,
	}
}

func (m *Machine) summary(draft session.OrderSession) string {
	unit := draft.Product.UnitPrice()
	total := unit * float64(draft.Quantity)
	return m.render(reply.KeySummary, map[string]string{
		"quantidade": strconv.Itoa(draft.Quantity),
		"produto":    draft.Product.Name,
		"unitario":   reply.FormatBRL(unit),
		"total":      reply.FormatBRL(total),
	})
}

func (m *Machine) render(key string, vars map[string]string) string {
	return reply.Render(m.templates, key, vars)
}
