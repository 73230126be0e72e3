package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/reply"
	"github.com/atendeai/core/internal/tools"
)

// fakeModel replays a scripted sequence of responses, recording the message
// list each Generate call received.
type fakeModel struct {
	script  []*schema.Message
	err     error
	calls   [][]*schema.Message
	bound   []*schema.ToolInfo
	callIdx int
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.calls = append(f.calls, append([]*schema.Message(nil), input...))
	if f.callIdx >= len(f.script) {
		return schema.AssistantMessage("Posso ajudar em algo mais?", nil), nil
	}
	out := f.script[f.callIdx]
	f.callIdx++
	return out, nil
}

func (f *fakeModel) BindTools(infos []*schema.ToolInfo) error {
	f.bound = infos
	return nil
}

type fakeFactory struct {
	model *fakeModel
	err   error
}

func (f *fakeFactory) ChatModel(ctx context.Context, modelName string, temperature float64) (ChatModel, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func toolCallMsg(id, name, args string) *schema.Message {
	return &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       id,
			Function: schema.FunctionCall{Name: name, Arguments: args},
		}},
	}
}

func testAgent() *config.ResolvedAgent {
	return &config.ResolvedAgent{
		TenantID:    "casa-forte",
		ID:          "vendas",
		Name:        "Lia",
		CompanyName: "Casa Forte Materiais",
		Model:       "gemini-2.0-flash",
		Temperature: 0.3,
		HandoffRoutes: []config.HandoffRoute{
			{TargetAgentID: "financeiro", Label: "Financeiro"},
		},
	}
}

func echoRegistry(t *testing.T, name, result string) *tools.Registry {
	t.Helper()
	reg := tools.NewRegistry()
	reg.Add(tools.Definition{
		Info: &schema.ToolInfo{Name: name, Desc: "test tool",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{})},
		Exec: tools.ExecutorFunc(func(ctx context.Context, call tools.CallContext, args map[string]any) (string, error) {
			return result, nil
		}),
	})
	return reg
}

func TestRespondPlainReply(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		schema.AssistantMessage("Olá! Como posso ajudar?", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})

	turn := o.Respond(context.Background(), testAgent(), tools.NewRegistry(), tools.CallContext{}, "oi", nil)

	assert.Equal(t, "Olá! Como posso ajudar?", turn.Content)
	assert.Equal(t, 1, turn.Rounds)
	assert.Nil(t, turn.Handoff)
	// history out: user message plus the assistant reply, system excluded
	require.Len(t, turn.Messages, 2)
	assert.Equal(t, schema.User, turn.Messages[0].Role)
	assert.Equal(t, schema.Assistant, turn.Messages[1].Role)
	// the model itself saw the system prompt first
	require.NotEmpty(t, fm.calls)
	assert.Equal(t, schema.System, fm.calls[0][0].Role)
}

func TestRespondExecutesToolsAndFeedsResultsBack(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		toolCallMsg("tc-1", "buscar_produtos", `{"busca":"cimento"}`),
		schema.AssistantMessage("Temos Cimento CP-II por R$ 31,00.", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})
	reg := echoRegistry(t, "buscar_produtos", `[{"nome":"Cimento CP-II 50kg","sku":"CIM-5001"}]`)

	turn := o.Respond(context.Background(), testAgent(), reg, tools.CallContext{}, "tem cimento?", nil)

	assert.Equal(t, "Temos Cimento CP-II por R$ 31,00.", turn.Content)
	assert.Equal(t, 2, turn.Rounds)
	require.Len(t, turn.ToolResults, 1)
	assert.Equal(t, "buscar_produtos", turn.ToolResults[0].Name)

	// second round saw the tool result with the matching call id
	require.Len(t, fm.calls, 2)
	second := fm.calls[1]
	toolMsg := second[len(second)-1]
	assert.Equal(t, schema.Tool, toolMsg.Role)
	assert.Equal(t, "tc-1", toolMsg.ToolCallID)
	assert.Contains(t, toolMsg.Content, "CIM-5001")

	// tools were bound before the first round
	require.Len(t, fm.bound, 1)
	assert.Equal(t, "buscar_produtos", fm.bound[0].Name)
}

func TestRespondSynthesizesMissingToolCallIDs(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		toolCallMsg("", "buscar_produtos", `{}`),
		schema.AssistantMessage("Encontrei.", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})
	reg := echoRegistry(t, "buscar_produtos", `[]`)

	turn := o.Respond(context.Background(), testAgent(), reg, tools.CallContext{}, "tem areia?", nil)

	require.Len(t, fm.calls, 2)
	second := fm.calls[1]
	toolMsg := second[len(second)-1]
	assert.NotEmpty(t, toolMsg.ToolCallID)
	assert.Equal(t, "Encontrei.", turn.Content)
}

func TestRespondStopsAtRoundCap(t *testing.T) {
	script := make([]*schema.Message, 0, MaxRounds+2)
	for i := 0; i < MaxRounds+2; i++ {
		script = append(script, toolCallMsg("", "buscar_produtos", `{}`))
	}
	fm := &fakeModel{script: script}
	o := NewOrchestrator(&fakeFactory{model: fm})
	reg := echoRegistry(t, "buscar_produtos", `[{"nome":"Areia Média","sku":"ARE-1","estoque_disponivel":10,"preco":9.5}]`)

	turn := o.Respond(context.Background(), testAgent(), reg, tools.CallContext{}, "procura tudo", nil)

	assert.Len(t, fm.calls, MaxRounds)
	assert.Equal(t, MaxRounds, turn.Rounds)
	// the capped final message had no content, so the reply is recovered
	// from the last tool result
	assert.Contains(t, turn.Content, "Areia Média")
	assert.NotEmpty(t, turn.Content)

	// the capped final message carried tool calls that were never run;
	// they must not survive into the outgoing history
	last := turn.Messages[len(turn.Messages)-1]
	assert.Equal(t, schema.Assistant, last.Role)
	assert.Empty(t, last.ToolCalls)
}

func TestRespondCapturesHandoffAndLetsModelSayGoodbye(t *testing.T) {
	agent := testAgent()
	fm := &fakeModel{script: []*schema.Message{
		toolCallMsg("tc-1", tools.ToolHandoff, `{"destino":"financeiro","mensagem_transicao":"Vou te passar para o financeiro."}`),
		schema.AssistantMessage("Claro! Vou te transferir para o financeiro agora.", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})

	reg := tools.NewRegistry()
	reg.Add(tools.Definition{
		Info: &schema.ToolInfo{Name: tools.ToolHandoff, Desc: "transfer",
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{})},
		Exec: tools.ExecutorFunc(func(ctx context.Context, call tools.CallContext, args map[string]any) (string, error) {
			return `{"handoff":true,"target_agent_id":"financeiro","transition_message":"Vou te passar para o financeiro."}`, nil
		}),
	})

	turn := o.Respond(context.Background(), agent, reg, tools.CallContext{Agent: agent}, "quero falar com o financeiro", nil)

	require.NotNil(t, turn.Handoff)
	assert.Equal(t, "financeiro", turn.Handoff.TargetAgentID)
	assert.Equal(t, "Claro! Vou te transferir para o financeiro agora.", turn.Content)
	assert.Len(t, fm.calls, 2)

	// the model never saw the raw handoff payload, only the follow-up
	second := fm.calls[1]
	toolMsg := second[len(second)-1]
	assert.NotContains(t, toolMsg.Content, `"handoff":true`)
	assert.Contains(t, toolMsg.Content, "transferencia_registrada")
}

func TestRespondRecoversFromBlankReply(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		toolCallMsg("tc-1", "buscar_produtos", `{"busca":"cimento"}`),
		schema.AssistantMessage("...", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})
	reg := echoRegistry(t, "buscar_produtos",
		`[{"nome":"Cimento CP-II 50kg","sku":"CIM-5001","estoque_disponivel":80,"preco":34.9,"preco_promocional":31.0}]`)

	turn := o.Respond(context.Background(), testAgent(), reg, tools.CallContext{}, "tem cimento?", nil)

	assert.Contains(t, turn.Content, "Cimento CP-II 50kg")
	assert.Contains(t, turn.Content, "31,00")
	assert.Contains(t, turn.Content, "80 unidades")
}

func TestRespondBlankWithoutToolsFallsBackToApology(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		schema.AssistantMessage("", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})

	turn := o.Respond(context.Background(), testAgent(), tools.NewRegistry(), tools.CallContext{}, "oi", nil)

	assert.Equal(t, reply.Default(reply.KeyFallbackApology), turn.Content)
}

func TestRespondMapsProviderFailuresToContent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		key  string
	}{
		{"auth", errors.New("401 unauthorized: API key not valid"), reply.KeyProviderAuth},
		{"rate", errors.New("googleapi: quota exceeded for quota metric"), reply.KeyProviderRateLimit},
		{"offline", errors.New("dial tcp: connection refused"), reply.KeyProviderOffline},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fm := &fakeModel{err: tc.err}
			o := NewOrchestrator(&fakeFactory{model: fm})

			turn := o.Respond(context.Background(), testAgent(), tools.NewRegistry(), tools.CallContext{}, "oi", nil)

			assert.Equal(t, reply.Default(tc.key), turn.Content)
			assert.Nil(t, turn.Handoff)
			// the failure message still lands in the outgoing history
			require.NotEmpty(t, turn.Messages)
			assert.Equal(t, turn.Content, turn.Messages[len(turn.Messages)-1].Content)
		})
	}
}

func TestRespondDropsSystemMessagesFromIncomingHistory(t *testing.T) {
	fm := &fakeModel{script: []*schema.Message{
		schema.AssistantMessage("Certo!", nil),
	}}
	o := NewOrchestrator(&fakeFactory{model: fm})
	history := []*schema.Message{
		schema.SystemMessage("stale prompt"),
		schema.UserMessage("oi"),
		schema.AssistantMessage("Olá!", nil),
	}

	o.Respond(context.Background(), testAgent(), tools.NewRegistry(), tools.CallContext{}, "tudo bem?", history)

	require.NotEmpty(t, fm.calls)
	seen := fm.calls[0]
	for i, m := range seen {
		if i == 0 {
			continue
		}
		assert.NotEqual(t, schema.System, m.Role)
	}
}
