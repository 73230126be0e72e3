package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
)

// ToolHandoff is the dynamically generated transfer tool's identifier.
const ToolHandoff = "transferir_atendimento"

// HandoffSignal is the structured outcome of a transfer decision.
type HandoffSignal struct {
	TargetAgentID     string `json:"target_agent_id"`
	TransitionMessage string `json:"transition_message"`
	InitialReply      string `json:"initial_reply,omitempty"`
}

// handoffResult is the wire shape the handoff executor emits so the loop
// can recognise a transfer among ordinary tool results.
type handoffResult struct {
	Handoff           bool   `json:"handoff"`
	TargetAgentID     string `json:"target_agent_id"`
	TransitionMessage string `json:"transition_message"`
}

// handoffDefinition generates the transfer tool for an agent's configured
// routes. The enum and description are rebuilt per request from the
// resolved configuration.
func handoffDefinition(agent *config.ResolvedAgent) Definition {
	targets := make([]string, 0, len(agent.HandoffRoutes))
	var desc strings.Builder
	desc.WriteString("Transfere a conversa para outro assistente da empresa quando o assunto for da área dele. Destinos disponíveis: ")
	for i, route := range agent.HandoffRoutes {
		targets = append(targets, route.TargetAgentID)
		if i > 0 {
			desc.WriteString("; ")
		}
		label := route.Label
		if label == "" {
			label = route.TargetAgentID
		}
		fmt.Fprintf(&desc, "%s (%s)", route.TargetAgentID, label)
		if route.Description != "" {
			fmt.Fprintf(&desc, " - %s", route.Description)
		}
	}
	desc.WriteString(". Use também quando o cliente pedir explicitamente para transferir.")

	return Definition{
		Info: &schema.ToolInfo{
			Name: ToolHandoff,
			Desc: desc.String(),
			ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
				"destino": {
					Type:     "string",
					Desc:     "Identificador do assistente de destino.",
					Enum:     targets,
					Required: true,
				},
				"mensagem_transicao": {
					Type:     "string",
					Desc:     "Mensagem curta explicando ao cliente que o atendimento será transferido.",
					Required: true,
				},
			}),
		},
		Exec: ExecutorFunc(execHandoff),
	}
}

func execHandoff(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	target := stringArg(args, "destino")
	if target == "" {
		return "", fmt.Errorf("destino is required")
	}
	if call.Agent.Route(target) == nil {
		return "", fmt.Errorf("destino desconhecido: %s", target)
	}

	transition := stringArg(args, "mensagem_transicao")
	if transition == "" {
		transition = "Vou transferir seu atendimento para o assistente responsável. Um momento, por favor!"
	}

	b, err := json.Marshal(handoffResult{
		Handoff:           true,
		TargetAgentID:     target,
		TransitionMessage: transition,
	})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ParseHandoff inspects a tool result for the handoff output shape.
func ParseHandoff(result string) (*HandoffSignal, bool) {
	trimmed := strings.TrimSpace(result)
	if !strings.HasPrefix(trimmed, "{") || !strings.Contains(trimmed, `"handoff"`) {
		return nil, false
	}
	var hr handoffResult
	if err := json.Unmarshal([]byte(trimmed), &hr); err != nil || !hr.Handoff || hr.TargetAgentID == "" {
		return nil, false
	}
	return &HandoffSignal{
		TargetAgentID:     hr.TargetAgentID,
		TransitionMessage: hr.TransitionMessage,
	}, true
}
