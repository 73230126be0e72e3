package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/erp"
)

func testAgent(opts ...func(*config.ResolvedAgent)) *config.ResolvedAgent {
	a := &config.ResolvedAgent{
		TenantID:         "t1",
		ID:               "vendas",
		Name:             "Ana",
		OrderFlowEnabled: true,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func testCall(agent *config.ResolvedAgent) CallContext {
	return CallContext{
		TenantID: agent.TenantID,
		Phone:    "+5511999990000",
		Agent:    agent,
		ERP:      erp.NewMockClient(nil, nil),
	}
}

func TestBuildGatesByFeatureFlags(t *testing.T) {
	agent := testAgent()
	reg := Build(agent)

	names := make(map[string]bool)
	for _, info := range reg.Infos() {
		names[info.Name] = true
	}
	assert.True(t, names[ToolSearchProducts])
	assert.True(t, names[ToolValidateCustomer])
	assert.False(t, names[ToolOpenInvoices], "financial tool requires the flag")
	assert.False(t, names[ToolHandoff], "handoff tool requires routes")

	agent = testAgent(func(a *config.ResolvedAgent) {
		a.FinancialEnabled = true
		a.HandoffRoutes = []config.HandoffRoute{{TargetAgentID: "financeiro", Label: "Financeiro"}}
	})
	reg = Build(agent)
	names = map[string]bool{}
	for _, info := range reg.Infos() {
		names[info.Name] = true
	}
	assert.True(t, names[ToolOpenInvoices])
	assert.True(t, names[ToolHandoff])
}

func TestBuildHonorsAllowList(t *testing.T) {
	agent := testAgent(func(a *config.ResolvedAgent) {
		a.Tools = []string{ToolSearchProducts}
	})
	reg := Build(agent)
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, ToolSearchProducts, reg.Infos()[0].Name)
}

func TestExecuteNeverPropagatesFailures(t *testing.T) {
	agent := testAgent()
	reg := Build(agent)
	call := testCall(agent)
	ctx := context.Background()

	out := reg.Execute(ctx, call, "ferramenta_inexistente", `{}`)
	assert.Contains(t, out, "unknown_tool")

	out = reg.Execute(ctx, call, ToolSearchProducts, `{broken json`)
	assert.Contains(t, out, "invalid_arguments")

	out = reg.Execute(ctx, call, ToolSearchProducts, `{}`)
	assert.Contains(t, out, "error")
}

func TestExecuteSearchProducts(t *testing.T) {
	agent := testAgent()
	reg := Build(agent)
	out := reg.Execute(context.Background(), testCall(agent), ToolSearchProducts, `{"query":"cimento"}`)
	assert.Contains(t, out, "CIM-5001")
	assert.Contains(t, out, "estoque_disponivel")
}

func TestHandoffToolRoundTrip(t *testing.T) {
	agent := testAgent(func(a *config.ResolvedAgent) {
		a.HandoffRoutes = []config.HandoffRoute{{TargetAgentID: "financeiro", Label: "Financeiro"}}
	})
	reg := Build(agent)

	out := reg.Execute(context.Background(), testCall(agent),
		ToolHandoff, `{"destino":"financeiro","mensagem_transicao":"Vou te passar para o financeiro!"}`)

	sig, ok := ParseHandoff(out)
	require.True(t, ok)
	assert.Equal(t, "financeiro", sig.TargetAgentID)
	assert.Equal(t, "Vou te passar para o financeiro!", sig.TransitionMessage)

	// Unknown destinations are rejected as error strings, not transfers.
	out = reg.Execute(context.Background(), testCall(agent), ToolHandoff, `{"destino":"rh"}`)
	_, ok = ParseHandoff(out)
	assert.False(t, ok)
}

func TestParseHandoffIgnoresOrdinaryResults(t *testing.T) {
	_, ok := ParseHandoff(`[{"sku":"CIM-5001"}]`)
	assert.False(t, ok)
	_, ok = ParseHandoff(`texto livre qualquer`)
	assert.False(t, ok)
}
