package orchestrator

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeai/core/internal/config"
	errx "github.com/atendeai/core/internal/core/error"
	"github.com/atendeai/core/internal/erp"
	"github.com/atendeai/core/internal/llm"
	"github.com/atendeai/core/internal/reply"
	"github.com/atendeai/core/internal/session"
	"github.com/atendeai/core/internal/tools"
)

// scriptedModel replays a fixed sequence of responses across every
// invocation the turn makes, including the handoff greeting call.
type scriptedModel struct {
	script []*schema.Message
	idx    int
}

func (m *scriptedModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if m.idx >= len(m.script) {
		return schema.AssistantMessage("Certo! Algo mais?", nil), nil
	}
	out := m.script[m.idx]
	m.idx++
	return out, nil
}

func (m *scriptedModel) BindTools(infos []*schema.ToolInfo) error { return nil }

type scriptedFactory struct{ model *scriptedModel }

func (f *scriptedFactory) ChatModel(ctx context.Context, name string, temp float64) (llm.ChatModel, error) {
	return f.model, nil
}

func toolCallMsg(name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "tc-1",
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func salesTenant() *config.Tenant {
	return &config.Tenant{
		ID:             "casa-forte",
		Name:           "Casa Forte",
		CompanyName:    "Casa Forte Materiais",
		DefaultAgentID: "vendas",
		Defaults: config.Defaults{
			Model:            "gemini-2.0-flash",
			Temperature:      0.3,
			OrderFlowEnabled: true,
			IntegrationMode:  config.ModeMock,
		},
		Agents: []config.Agent{
			{ID: "vendas", AgentOverrides: config.AgentOverrides{Name: "Lia"}},
			{ID: "recepcao", AgentOverrides: config.AgentOverrides{
				Name: "Bia",
				HandoffRoutes: []config.HandoffRoute{
					{TargetAgentID: "vendas", Label: "Vendas", Description: "compras e pedidos"},
				},
			}},
		},
	}
}

type fixture struct {
	o        *Orchestrator
	sessions session.Store
	owners   session.CurrentAgentStore
}

func newFixture(t *testing.T, script ...*schema.Message) *fixture {
	t.Helper()
	resolver := config.NewResolver(config.NewMemoryTenantStore(salesTenant()))
	sessions := session.NewMemoryStore()
	owners := session.NewMemoryCurrentAgentStore()
	model := llm.NewOrchestrator(&scriptedFactory{model: &scriptedModel{script: script}})
	return &fixture{
		o:        New(resolver, sessions, owners, model),
		sessions: sessions,
		owners:   owners,
	}
}

func TestProcessMessageGreeting(t *testing.T) {
	f := newFixture(t)

	res, err := f.o.ProcessMessage(context.Background(), Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "Olá!",
	})
	require.NoError(t, err)

	assert.Equal(t, "vendas", res.EffectiveAgentID)
	assert.Contains(t, res.Reply, "Lia")
	assert.Contains(t, res.Reply, "Casa Forte Materiais")

	sess, err := f.sessions.Get(context.Background(), session.Key{
		TenantID: "casa-forte", AgentID: "vendas", Phone: "5511999990000",
	})
	require.NoError(t, err)
	require.Len(t, sess.History, 2)
	assert.Equal(t, "Olá!", sess.History[0].Content)
}

func TestProcessMessageUnknownTenant(t *testing.T) {
	f := newFixture(t)

	_, err := f.o.ProcessMessage(context.Background(), Request{
		TenantID: "nao-existe", Phone: "5511999990000", Text: "oi",
	})
	require.Error(t, err)
	assert.True(t, errx.IsNotFound(err))
}

func TestProcessMessageHumanEscalation(t *testing.T) {
	f := newFixture(t)

	res, err := f.o.ProcessMessage(context.Background(), Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "quero falar com um atendente humano",
	})
	require.NoError(t, err)
	assert.Equal(t, reply.Default(reply.KeyHumanEscalation), res.Reply)
	assert.Nil(t, res.Handoff)
}

func TestProcessMessageOrderFlowFromLastProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	key := session.Key{TenantID: "casa-forte", AgentID: "vendas", Phone: "5511999990000"}

	seed := session.NewSession()
	seed.LastProduct = &erp.MockProducts[0] // Cimento CP-II, promo 31.00, estoque 80
	require.NoError(t, f.sessions.Set(ctx, key, seed))

	res, err := f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "sim quero 2 unidades do produto",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "2 unidades")
	assert.Contains(t, res.Reply, "62,00")

	sess, err := f.sessions.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, session.OrderAwaitingCPF, sess.Order.State)
	assert.Equal(t, 2, sess.Order.Quantity)

	// valid document advances to confirmation with the order summary
	res, err = f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "12345678901",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Posso confirmar?")

	sess, err = f.sessions.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, session.OrderAwaitingConfirmation, sess.Order.State)
	assert.Equal(t, "Maria Oliveira", sess.Order.CustomerName)

	// confirmation closes the flow and resets the order session
	res, err = f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "sim",
	})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "PED-")

	sess, err = f.sessions.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, session.OrderIdle, sess.Order.State)
	assert.Zero(t, sess.Order.Quantity)
}

func TestProcessMessageEmptyHistoryResetsEverything(t *testing.T) {
	f := newFixture(t, schema.AssistantMessage("Olá de novo! Como posso ajudar?", nil))
	ctx := context.Background()
	key := session.Key{TenantID: "casa-forte", AgentID: "vendas", Phone: "5511999990000"}

	midFlow := session.NewSession()
	midFlow.Order = session.OrderSession{
		State:    session.OrderAwaitingConfirmation,
		Product:  &erp.MockProducts[0],
		Quantity: 2,
		Document: "12345678901",
	}
	midFlow.AppendTurn("quero cimento", "Quantas unidades?")
	require.NoError(t, f.sessions.Set(ctx, key, midFlow))
	require.NoError(t, f.owners.Set(ctx, "casa-forte", "5511999990000", "vendas"))

	res, err := f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000",
		Text:    "vamos recomeçar",
		History: []*schema.Message{},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Reply)

	owner, err := f.owners.Get(ctx, "casa-forte", "5511999990000")
	require.NoError(t, err)
	assert.Empty(t, owner)

	sess, err := f.sessions.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, session.OrderIdle, sess.Order.State)
	assert.Zero(t, sess.Order.Quantity)
}

func TestProcessMessageModelBranchRemembersProduct(t *testing.T) {
	f := newFixture(t,
		toolCallMsg(tools.ToolSearchProducts, `{"query":"cimento"}`),
		schema.AssistantMessage("Temos Cimento CP-II 50kg por R$ 31,00!", nil),
	)
	ctx := context.Background()

	res, err := f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "vocês têm cimento?", Debug: true,
	})
	require.NoError(t, err)
	assert.Contains(t, res.Reply, "Cimento")
	require.NotNil(t, res.Trace)
	assert.Equal(t, "model", res.Trace.Branch)
	require.NotEmpty(t, res.Trace.ToolResults)

	sess, err := f.sessions.Get(ctx, session.Key{
		TenantID: "casa-forte", AgentID: "vendas", Phone: "5511999990000",
	})
	require.NoError(t, err)
	require.NotNil(t, sess.LastProduct)
	assert.Equal(t, "CIM-5001", sess.LastProduct.SKU)
}

func TestProcessMessageHandoff(t *testing.T) {
	f := newFixture(t,
		toolCallMsg(tools.ToolHandoff, `{"destino":"vendas","mensagem_transicao":"Vou te passar para o time de vendas."}`),
		schema.AssistantMessage("Claro! Já estou te transferindo para o time de vendas.", nil),
		schema.AssistantMessage("Oi! Aqui é a Lia, de vendas. Vi que você quer comprar cimento!", nil),
	)
	ctx := context.Background()

	res, err := f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000",
		Text:    "quero comprar cimento",
		AgentID: "recepcao",
	})
	require.NoError(t, err)

	assert.Equal(t, "recepcao", res.EffectiveAgentID)
	require.NotNil(t, res.Handoff)
	assert.Equal(t, "vendas", res.Handoff.TargetAgentID)
	assert.Equal(t, "Vou te passar para o time de vendas.", res.Handoff.TransitionMessage)
	assert.Contains(t, res.Handoff.InitialReply, "Lia")

	owner, err := f.owners.Get(ctx, "casa-forte", "5511999990000")
	require.NoError(t, err)
	assert.Equal(t, "vendas", owner)

	// the target session starts with exactly the user message and greeting
	seeded, err := f.sessions.Get(ctx, session.Key{
		TenantID: "casa-forte", AgentID: "vendas", Phone: "5511999990000",
	})
	require.NoError(t, err)
	require.Len(t, seeded.History, 2)
	assert.Equal(t, "quero comprar cimento", seeded.History[0].Content)
	assert.Equal(t, res.Handoff.InitialReply, seeded.History[1].Content)
}

func TestProcessMessageOwnerStickiness(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.owners.Set(ctx, "casa-forte", "5511999990000", "recepcao"))

	res, err := f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "oi",
	})
	require.NoError(t, err)
	assert.Equal(t, "recepcao", res.EffectiveAgentID)
	assert.Contains(t, res.Reply, "Bia")
}

func TestProcessMessageStartOrderDemotedForRoutingAgent(t *testing.T) {
	f := newFixture(t, schema.AssistantMessage("Vou te ajudar com isso!", nil))
	ctx := context.Background()
	key := session.Key{TenantID: "casa-forte", AgentID: "recepcao", Phone: "5511999990000"}

	seed := session.NewSession()
	seed.LastProduct = &erp.MockProducts[0]
	require.NoError(t, f.sessions.Set(ctx, key, seed))

	res, err := f.o.ProcessMessage(ctx, Request{
		TenantID: "casa-forte", Phone: "5511999990000",
		Text:    "quero fazer um pedido",
		AgentID: "recepcao",
		Debug:   true,
	})
	require.NoError(t, err)
	require.NotNil(t, res.Trace)
	assert.Equal(t, "model", res.Trace.Branch)
}

func TestProcessMessageNeverReturnsEmptyReply(t *testing.T) {
	f := newFixture(t, schema.AssistantMessage("...", nil))

	res, err := f.o.ProcessMessage(context.Background(), Request{
		TenantID: "casa-forte", Phone: "5511999990000", Text: "hmm",
	})
	require.NoError(t, err)
	assert.Equal(t, reply.Default(reply.KeyFallbackApology), res.Reply)
}
