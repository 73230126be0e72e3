package config

import (
	"context"
	"sync"
)

// MemoryTenantStore is a map-backed TenantStore used in tests and local
// development with fixture tenants.
type MemoryTenantStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

// NewMemoryTenantStore seeds a store with the given tenants.
func NewMemoryTenantStore(tenants ...*Tenant) *MemoryTenantStore {
	m := &MemoryTenantStore{tenants: make(map[string]*Tenant, len(tenants))}
	for _, t := range tenants {
		m.tenants[t.ID] = t
	}
	return m
}

// Put inserts or replaces a tenant row.
func (m *MemoryTenantStore) Put(t *Tenant) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
}

// GetTenant returns the tenant or nil when unknown.
func (m *MemoryTenantStore) GetTenant(ctx context.Context, tenantID string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenants[tenantID], nil
}

var _ TenantStore = (*MemoryTenantStore)(nil)
