package config

import (
	"context"
	"sync"

	errx "github.com/atendeai/core/internal/core/error"
	logx "github.com/atendeai/core/pkg/logger"
)

const (
	minTemperature = 0.0
	maxTemperature = 2.0
)

// Resolver computes effective agent configuration from tenant rows. The
// tenant cache is owned by the resolver instance and cleared through
// Invalidate; there is no process-wide state.
type Resolver struct {
	store TenantStore

	mu    sync.RWMutex
	cache map[string]*Tenant
}

// NewResolver builds a resolver over the given store with an empty cache.
func NewResolver(store TenantStore) *Resolver {
	return &Resolver{
		store: store,
		cache: make(map[string]*Tenant),
	}
}

// Tenant returns the cached tenant row, loading it on first access.
func (r *Resolver) Tenant(ctx context.Context, tenantID string) (*Tenant, error) {
	r.mu.RLock()
	t, ok := r.cache[tenantID]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := r.store.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errx.NewNotFound("tenant", tenantID)
	}

	r.mu.Lock()
	r.cache[tenantID] = t
	r.mu.Unlock()
	return t, nil
}

// Invalidate drops the cached row for a tenant so the next access reloads
// its configuration. An empty id clears the whole cache.
func (r *Resolver) Invalidate(tenantID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tenantID == "" {
		r.cache = make(map[string]*Tenant)
		return
	}
	delete(r.cache, tenantID)
	logx.Debug().Str("tenant_id", tenantID).Msg("tenant config cache invalidated")
}

// Resolve merges agent overrides onto tenant defaults. An empty agentID
// selects the tenant's default agent. Unknown tenants and agents surface as
// 404 errx values, the one error category allowed to reach the caller.
func (r *Resolver) Resolve(ctx context.Context, tenantID, agentID string) (*ResolvedAgent, error) {
	t, err := r.Tenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if agentID == "" {
		agentID = t.DefaultAgentID
	}
	agent := t.Agent(agentID)
	if agent == nil {
		return nil, errx.NewNotFound("agent", agentID)
	}

	resolved := &ResolvedAgent{
		TenantID:         t.ID,
		ID:               agent.ID,
		Name:             agent.Name,
		CompanyName:      t.CompanyName,
		SystemPrompt:     t.Defaults.SystemPrompt,
		Model:            t.Defaults.Model,
		Temperature:      t.Defaults.Temperature,
		OrderFlowEnabled: t.Defaults.OrderFlowEnabled,
		FinancialEnabled: t.Defaults.FinancialEnabled,
		IntegrationMode:  t.Defaults.IntegrationMode,
		HandoffRoutes:    agent.HandoffRoutes,
		Tools:            agent.Tools,
		Templates:        t.Templates,
		CustomTools:      t.CustomTools,
		Integration:      t.Integration,
		MockProducts:     agent.MockProducts,
		MockCustomers:    agent.MockCustomers,
	}

	if resolved.Name == "" {
		resolved.Name = agent.ID
	}
	if agent.SystemPrompt != "" {
		resolved.SystemPrompt = agent.SystemPrompt
	}
	if agent.Model != "" {
		resolved.Model = agent.Model
	}
	if agent.Temperature != nil {
		resolved.Temperature = *agent.Temperature
	}
	if agent.OrderFlowEnabled != nil {
		resolved.OrderFlowEnabled = *agent.OrderFlowEnabled
	}
	if agent.FinancialEnabled != nil {
		resolved.FinancialEnabled = *agent.FinancialEnabled
	}
	if agent.IntegrationMode != "" {
		resolved.IntegrationMode = agent.IntegrationMode
	}
	if resolved.IntegrationMode == "" {
		resolved.IntegrationMode = ModeMock
	}

	if resolved.Temperature < minTemperature {
		resolved.Temperature = minTemperature
	}
	if resolved.Temperature > maxTemperature {
		resolved.Temperature = maxTemperature
	}

	return resolved, nil
}
