// Package erp defines the data-lookup collaborators the conversation core
// consumes: customer validation, order submission, the product catalog and
// the finance desk. Production and mock implementations share these shapes.
package erp

import (
	"context"
)

// Product is the snapshot of a catalog item carried through conversations.
type Product struct {
	Name       string   `json:"nome"`
	SKU        string   `json:"sku"`
	Available  int      `json:"estoque_disponivel"`
	Price      float64  `json:"preco"`
	PromoPrice *float64 `json:"preco_promocional,omitempty"`
}

// UnitPrice returns the promotional price when present, else the list price.
func (p Product) UnitPrice() float64 {
	if p.PromoPrice != nil {
		return *p.PromoPrice
	}
	return p.Price
}

// ValidationStatus is the three-way outcome of a customer document lookup.
type ValidationStatus string

const (
	ValidationValid    ValidationStatus = "valid"
	ValidationBlocked  ValidationStatus = "blocked"
	ValidationNotFound ValidationStatus = "not_found"
)

// ValidationResult carries the outcome of validating a CPF/CNPJ.
type ValidationResult struct {
	Status       ValidationStatus `json:"status"`
	CustomerName string           `json:"nome,omitempty"`
	Reason       string           `json:"motivo,omitempty"`
}

// OrderItem is one line of a submitted order.
type OrderItem struct {
	SKU       string  `json:"sku"`
	Quantity  int     `json:"quantidade"`
	UnitPrice float64 `json:"preco_unitario"`
}

// OrderReceipt is returned by a successful order submission.
type OrderReceipt struct {
	OrderID string `json:"pedido_id"`
	Message string `json:"mensagem"`
}

// OrderStatus describes one in-flight order for the status tool.
type OrderStatus struct {
	OrderID   string `json:"pedido_id"`
	Status    string `json:"status"`
	Forecast  string `json:"previsao_entrega,omitempty"`
	UpdatedAt string `json:"atualizado_em,omitempty"`
}

// Invoice describes one open receivable for the finance desk tool.
type Invoice struct {
	Number  string  `json:"numero"`
	Amount  float64 `json:"valor"`
	DueDate string  `json:"vencimento"`
	Barcode string  `json:"linha_digitavel,omitempty"`
}

// Client is the full set of backend lookups the core may perform. Both the
// production HTTP client and the inline fixture client implement it;
// callers must treat the two sources identically.
type Client interface {
	ValidateCustomer(ctx context.Context, document string) (*ValidationResult, error)
	SubmitOrder(ctx context.Context, document, customerName string, items []OrderItem) (*OrderReceipt, error)
	SearchProducts(ctx context.Context, query string) ([]Product, error)
	GetProduct(ctx context.Context, sku string) (*Product, error)
	ListOrders(ctx context.Context, document string) ([]OrderStatus, error)
	ListOpenInvoices(ctx context.Context, document string) ([]Invoice, error)
}
