package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/reply"
	"github.com/atendeai/core/internal/tools"
	logx "github.com/atendeai/core/pkg/logger"
)

// MaxRounds caps model round-trips within a single user turn.
const MaxRounds = 5

// handoffFollowup replaces the handoff tool result fed back to the model, so
// its final turn is a short goodbye instead of another tool request.
const handoffFollowup = `{"status":"transferencia_registrada","instrucao":"Escreva agora uma breve mensagem informando o cliente que ele será transferido. Não chame mais ferramentas."}`

// ToolResult records one executed tool call within a turn.
type ToolResult struct {
	Name      string
	Arguments string
	Result    string
}

// Turn is the outcome of one loop run. Content is always non-empty and safe
// to send; provider failures surface as content, never as an error.
type Turn struct {
	Content     string
	Messages    []*schema.Message
	ToolResults []ToolResult
	Handoff     *tools.HandoffSignal
	Rounds      int
	Truncated   bool
}

// Orchestrator runs the bounded tool-call loop for one agent turn.
type Orchestrator struct {
	factory   ModelFactory
	maxRounds int
}

func NewOrchestrator(factory ModelFactory) *Orchestrator {
	return &Orchestrator{factory: factory, maxRounds: MaxRounds}
}

// Respond runs the loop: system prompt + history + user message in, executed
// tool calls in between, a user-facing reply out. Messages carries the updated
// history (system prompt excluded) for the caller to persist.
func (o *Orchestrator) Respond(ctx context.Context, agent *config.ResolvedAgent, registry *tools.Registry, call tools.CallContext, userMessage string, history []*schema.Message) *Turn {
	turn := &Turn{}

	msgs := make([]*schema.Message, 0, len(history)+8)
	msgs = append(msgs, schema.SystemMessage(systemPrompt(agent)))
	for _, m := range history {
		if m == nil || m.Role == schema.System {
			continue
		}
		msgs = append(msgs, m)
	}
	msgs = append(msgs, schema.UserMessage(userMessage))

	cm, err := o.factory.ChatModel(ctx, agent.Model, agent.Temperature)
	if err != nil {
		return o.failTurn(turn, msgs, agent, err)
	}
	if registry.Len() > 0 {
		if err := cm.BindTools(registry.Infos()); err != nil {
			return o.failTurn(turn, msgs, agent, err)
		}
	}

	var (
		final          *schema.Message
		lastToolName   string
		lastToolResult string
		callSeq        int
	)

	for round := 1; round <= o.maxRounds; round++ {
		out, err := cm.Generate(ctx, msgs)
		if err != nil {
			return o.failTurn(turn, msgs, agent, err)
		}
		turn.Rounds = round

		for i := range out.ToolCalls {
			if out.ToolCalls[i].ID == "" {
				callSeq++
				out.ToolCalls[i].ID = fmt.Sprintf("call_%d", callSeq)
			}
		}
		msgs = append(msgs, out)

		// After a handoff the model gets exactly one turn to phrase the
		// goodbye; whatever it returns ends the loop.
		if len(out.ToolCalls) == 0 || turn.Handoff != nil || round == o.maxRounds {
			final = out
			break
		}

		for _, tc := range out.ToolCalls {
			result := registry.Execute(ctx, call, tc.Function.Name, tc.Function.Arguments)
			if sig, ok := tools.ParseHandoff(result); ok && turn.Handoff == nil {
				turn.Handoff = sig
				result = handoffFollowup
			}
			lastToolName = tc.Function.Name
			lastToolResult = result
			turn.ToolResults = append(turn.ToolResults, ToolResult{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
				Result:    result,
			})
			msgs = append(msgs, &schema.Message{
				Role:       schema.Tool,
				ToolCallID: tc.ID,
				Content:    result,
			})
		}
	}

	// A loop ended at the cap or on the post-handoff turn can leave tool
	// calls that were never executed; persisting them would give the next
	// turn a history with unanswered function calls.
	final.ToolCalls = nil

	content := StripForeignScripts(final.Content)
	if isTruncated(final) {
		turn.Truncated = true
		content = content + reply.Render(agent.Templates, reply.KeyTruncationNotice, nil)
	}
	if isBlank(content) {
		content = o.recover(agent, lastToolResult, turn.Handoff)
		logx.Warn().
			Str("tenant_id", call.TenantID).
			Str("last_tool", lastToolName).
			Msg("model returned empty reply, recovered from tool output")
	}
	final.Content = content
	turn.Content = content
	turn.Messages = msgs[1:]
	return turn
}

// failTurn maps a provider failure to a user-facing message and closes the
// turn. The error never propagates.
func (o *Orchestrator) failTurn(turn *Turn, msgs []*schema.Message, agent *config.ResolvedAgent, err error) *Turn {
	key := classifyProviderError(err)
	logx.Error().Err(err).Str("failure", string(key)).Msg("model provider call failed")

	turn.Content = reply.Render(agent.Templates, key, nil)
	msgs = append(msgs, schema.AssistantMessage(turn.Content, nil))
	turn.Messages = msgs[1:]
	return turn
}

// recover builds a reply when the model produced nothing usable.
func (o *Orchestrator) recover(agent *config.ResolvedAgent, lastToolResult string, handoff *tools.HandoffSignal) string {
	if summary, ok := productSummary(lastToolResult); ok {
		return summary
	}
	if lastToolResult != "" {
		return lastToolResult
	}
	if handoff != nil {
		return handoff.TransitionMessage
	}
	return reply.Render(agent.Templates, reply.KeyFallbackApology, nil)
}

func systemPrompt(agent *config.ResolvedAgent) string {
	if agent.SystemPrompt != "" {
		return agent.SystemPrompt
	}
	return fmt.Sprintf("Você é %s, assistente virtual da %s. Responda sempre em português, de forma curta e cordial.", agent.Name, agent.CompanyName)
}
