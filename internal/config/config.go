// Package config holds the tenant/agent configuration model and the
// resolver that merges agent overrides onto tenant defaults per request.
package config

import (
	"context"

	"github.com/atendeai/core/internal/erp"
)

// IntegrationMode selects where an agent's data lookups are served from.
type IntegrationMode string

const (
	// ModeProduction points tools at the tenant's real ERP backend.
	ModeProduction IntegrationMode = "production"
	// ModeMock serves tools from inline fixture data.
	ModeMock IntegrationMode = "mock"
)

// HandoffRoute is one configured destination an agent may transfer to.
type HandoffRoute struct {
	TargetAgentID string `json:"target_agent_id"`
	Label         string `json:"label"`
	Description   string `json:"description"`
}

// ToolParam describes one parameter of a tenant-custom tool.
type ToolParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// CustomTool is a tenant-defined tool backed by an HTTP endpoint. The
// endpoint receives the structured arguments and must answer with text.
type CustomTool struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Params      []ToolParam `json:"params"`
	Endpoint    string      `json:"endpoint"`
}

// AgentOverrides are the per-agent fields layered onto tenant defaults.
// Pointer fields distinguish "unset" from an explicit zero value.
type AgentOverrides struct {
	Name             string             `json:"name,omitempty"`
	SystemPrompt     string             `json:"system_prompt,omitempty"`
	Model            string             `json:"model,omitempty"`
	Temperature      *float64           `json:"temperature,omitempty"`
	OrderFlowEnabled *bool              `json:"order_flow_enabled,omitempty"`
	FinancialEnabled *bool              `json:"financial_enabled,omitempty"`
	IntegrationMode  IntegrationMode    `json:"integration_mode,omitempty"`
	HandoffRoutes    []HandoffRoute     `json:"handoff_routes,omitempty"`
	Tools            []string           `json:"tools,omitempty"`
	MockProducts     []erp.Product      `json:"mock_products,omitempty"`
	MockCustomers    []erp.MockCustomer `json:"mock_customers,omitempty"`
}

// Agent is one configured conversational persona within a tenant.
type Agent struct {
	ID string `json:"id"`
	AgentOverrides
}

// Defaults are the tenant-level values agents inherit.
type Defaults struct {
	SystemPrompt     string          `json:"system_prompt"`
	Model            string          `json:"model"`
	Temperature      float64         `json:"temperature"`
	OrderFlowEnabled bool            `json:"order_flow_enabled"`
	FinancialEnabled bool            `json:"financial_enabled"`
	IntegrationMode  IntegrationMode `json:"integration_mode"`
}

// Integration holds the tenant's real-backend connection settings.
type Integration struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
}

// Tenant is a customer business with its own agents, templates and data.
type Tenant struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	CompanyName    string            `json:"company_name"`
	DefaultAgentID string            `json:"default_agent_id"`
	Defaults       Defaults          `json:"defaults"`
	Agents         []Agent           `json:"agents"`
	Templates      map[string]string `json:"templates,omitempty"`
	CustomTools    []CustomTool      `json:"custom_tools,omitempty"`
	Integration    Integration       `json:"integration"`
}

// Agent returns the tenant's agent with the given id, or nil.
func (t *Tenant) Agent(id string) *Agent {
	for i := range t.Agents {
		if t.Agents[i].ID == id {
			return &t.Agents[i]
		}
	}
	return nil
}

// ResolvedAgent is the effective configuration for a (tenant, agent) pair
// after merging. Derived, never stored; recomputed on every access.
type ResolvedAgent struct {
	TenantID         string
	ID               string
	Name             string
	CompanyName      string
	SystemPrompt     string
	Model            string
	Temperature      float64
	OrderFlowEnabled bool
	FinancialEnabled bool
	IntegrationMode  IntegrationMode
	HandoffRoutes    []HandoffRoute
	Tools            []string
	Templates        map[string]string
	CustomTools      []CustomTool
	Integration      Integration
	MockProducts     []erp.Product
	MockCustomers    []erp.MockCustomer
}

// HandoffEnabled reports whether this agent may transfer conversations.
func (a *ResolvedAgent) HandoffEnabled() bool {
	return len(a.HandoffRoutes) > 0
}

// Route returns the handoff route targeting the given agent id, or nil.
func (a *ResolvedAgent) Route(targetAgentID string) *HandoffRoute {
	for i := range a.HandoffRoutes {
		if a.HandoffRoutes[i].TargetAgentID == targetAgentID {
			return &a.HandoffRoutes[i]
		}
	}
	return nil
}

// TenantStore loads tenant configuration rows.
type TenantStore interface {
	GetTenant(ctx context.Context, tenantID string) (*Tenant, error)
}
