package erp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	logx "github.com/atendeai/core/pkg/logger"
)

// HTTPClient talks to a tenant's real ERP backend over REST.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	tenantID string
	http     *http.Client
}

// NewHTTPClient builds a production ERP client scoped to one tenant.
func NewHTTPClient(baseURL, apiKey, tenantID string) *HTTPClient {
	return &HTTPClient{
		baseURL:  baseURL,
		apiKey:   apiKey,
		tenantID: tenantID,
		http:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", c.tenantID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		logx.Error().Err(err).Str("path", path).Msg("erp request failed")
		return fmt.Errorf("erp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		logx.Error().Int("status", resp.StatusCode).Str("path", path).Msg("erp returned error status")
		return fmt.Errorf("erp status %d: %s", resp.StatusCode, string(snippet))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode erp response: %w", err)
	}
	return nil
}

func (c *HTTPClient) ValidateCustomer(ctx context.Context, document string) (*ValidationResult, error) {
	var res ValidationResult
	err := c.do(ctx, http.MethodGet, "/clientes/"+url.PathEscape(document), nil, &res)
	if err != nil {
		return nil, err
	}
	if res.Status == "" {
		res.Status = ValidationNotFound
	}
	return &res, nil
}

func (c *HTTPClient) SubmitOrder(ctx context.Context, document, customerName string, items []OrderItem) (*OrderReceipt, error) {
	payload := map[string]any{
		"documento": document,
		"cliente":   customerName,
		"itens":     items,
	}
	var receipt OrderReceipt
	if err := c.do(ctx, http.MethodPost, "/pedidos", payload, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *HTTPClient) SearchProducts(ctx context.Context, query string) ([]Product, error) {
	var products []Product
	path := "/produtos?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, path, nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *HTTPClient) GetProduct(ctx context.Context, sku string) (*Product, error) {
	var product Product
	if err := c.do(ctx, http.MethodGet, "/produtos/"+url.PathEscape(sku), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (c *HTTPClient) ListOrders(ctx context.Context, document string) ([]OrderStatus, error) {
	var orders []OrderStatus
	path := "/pedidos?documento=" + url.QueryEscape(document)
	if err := c.do(ctx, http.MethodGet, path, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *HTTPClient) ListOpenInvoices(ctx context.Context, document string) ([]Invoice, error) {
	var invoices []Invoice
	path := "/financeiro/boletos?documento=" + url.QueryEscape(document)
	if err := c.do(ctx, http.MethodGet, path, nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}

var _ Client = (*HTTPClient)(nil)
