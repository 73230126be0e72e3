package erp

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MockClient serves inline fixture data for tenants running in mock mode.
// Fixtures may be overridden per agent; zero-value fields fall back to the
// package defaults below.
type MockClient struct {
	products  []Product
	customers map[string]MockCustomer
}

// MockCustomer is one fixture row for customer validation.
type MockCustomer struct {
	Document string `json:"documento"`
	Name     string `json:"nome"`
	Blocked  bool   `json:"bloqueado"`
	Reason   string `json:"motivo,omitempty"`
}

// NewMockClient builds a fixture-backed client. Empty slices select the
// package defaults.
func NewMockClient(products []Product, customers []MockCustomer) *MockClient {
	if len(products) == 0 {
		products = MockProducts
	}
	if len(customers) == 0 {
		customers = MockCustomers
	}
	byDoc := make(map[string]MockCustomer, len(customers))
	for _, c := range customers {
		byDoc[c.Document] = c
	}
	return &MockClient{products: products, customers: byDoc}
}

func (c *MockClient) ValidateCustomer(ctx context.Context, document string) (*ValidationResult, error) {
	cust, ok := c.customers[document]
	if !ok {
		return &ValidationResult{Status: ValidationNotFound}, nil
	}
	if cust.Blocked {
		reason := cust.Reason
		if reason == "" {
			reason = "pendências financeiras"
		}
		return &ValidationResult{Status: ValidationBlocked, Reason: reason}, nil
	}
	return &ValidationResult{Status: ValidationValid, CustomerName: cust.Name}, nil
}

func (c *MockClient) SubmitOrder(ctx context.Context, document, customerName string, items []OrderItem) (*OrderReceipt, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("order has no items")
	}
	id := "PED-" + strings.ToUpper(uuid.NewString()[:8])
	return &OrderReceipt{
		OrderID: id,
		Message: fmt.Sprintf("Pedido %s registrado para %s.", id, customerName),
	}, nil
}

func (c *MockClient) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, fmt.Errorf("query is required")
	}
	var matched []Product
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.EqualFold(p.SKU, q) {
			matched = append(matched, p)
		}
	}
	return matched, nil
}

func (c *MockClient) GetProduct(ctx context.Context, sku string) (*Product, error) {
	for _, p := range c.products {
		if strings.EqualFold(p.SKU, sku) {
			prod := p
			return &prod, nil
		}
	}
	return nil, fmt.Errorf("product not found: %s", sku)
}

func (c *MockClient) ListOrders(ctx context.Context, document string) ([]OrderStatus, error) {
	if _, ok := c.customers[document]; !ok {
		return []OrderStatus{}, nil
	}
	return []OrderStatus{
		{OrderID: "PED-A1B2C3", Status: "em separação", Forecast: "3 dias úteis"},
		{OrderID: "PED-D4E5F6", Status: "entregue", UpdatedAt: "2026-08-20"},
	}, nil
}

func (c *MockClient) ListOpenInvoices(ctx context.Context, document string) ([]Invoice, error) {
	cust, ok := c.customers[document]
	if !ok || !cust.Blocked {
		return []Invoice{}, nil
	}
	return []Invoice{
		{Number: "BOL-2026-0133", Amount: 412.50, DueDate: "2026-08-10", Barcode: "34191.79001 01043.510047 91020.150008 1 99250000041250"},
	}, nil
}

var _ Client = (*MockClient)(nil)

// MockProducts is the default catalog fixture.
var MockProducts = []Product{
	{Name: "Cimento CP-II 50kg", SKU: "CIM-5001", Available: 80, Price: 34.90, PromoPrice: ptr(31.00)},
	{Name: "Argamassa AC-III 20kg", SKU: "ARG-2003", Available: 150, Price: 28.50},
	{Name: "Tinta Acrílica Fosca 18L Branco Neve", SKU: "TIN-1802", Available: 24, Price: 289.90, PromoPrice: ptr(259.90)},
	{Name: "Parafuso Sextavado 8x60mm (cento)", SKU: "PAR-0860", Available: 500, Price: 42.00},
	{Name: "Furadeira de Impacto 750W", SKU: "FUR-0750", Available: 12, Price: 349.00},
	{Name: "Telha Cerâmica Portuguesa (milheiro)", SKU: "TEL-9001", Available: 6, Price: 2890.00},
}

// MockCustomers is the default customer fixture.
var MockCustomers = []MockCustomer{
	{Document: "12345678901", Name: "Maria Oliveira"},
	{Document: "98765432100", Name: "João Pereira"},
	{Document: "12345678000190", Name: "Construtora Horizonte LTDA"},
	{Document: "11122233344", Name: "Carlos Souza", Blocked: true, Reason: "boletos em atraso"},
}

func ptr(v float64) *float64 { return &v }
