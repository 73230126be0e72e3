package handoff

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/session"
	"github.com/atendeai/core/internal/tools"
	logx "github.com/atendeai/core/pkg/logger"
)

// Invoker runs one model turn scoped to an agent. The conversation
// orchestrator implements it; the indirection keeps this package free of
// tool-registry wiring.
type Invoker interface {
	Invoke(ctx context.Context, agent *config.ResolvedAgent, phone, userMessage string, history []*schema.Message) string
}

// Result is what the caller learns about a completed transfer.
type Result struct {
	TargetAgentID     string
	TransitionMessage string
	InitialReply      string
}

// Coordinator completes a detected transfer: records the new owner, asks the
// receiving agent for a first message, and seeds its session.
type Coordinator struct {
	resolver *config.Resolver
	sessions session.Store
	owners   session.CurrentAgentStore
	invoker  Invoker
}

func NewCoordinator(resolver *config.Resolver, sessions session.Store, owners session.CurrentAgentStore, invoker Invoker) *Coordinator {
	return &Coordinator{resolver: resolver, sessions: sessions, owners: owners, invoker: invoker}
}

// Complete performs the ownership switch for (tenant, phone). The greeting
// synthesis is best effort: any failure is logged and the transfer proceeds
// without an initial reply.
func (c *Coordinator) Complete(ctx context.Context, tenantID, phone, userMessage string, sig *tools.HandoffSignal) *Result {
	res := &Result{
		TargetAgentID:     sig.TargetAgentID,
		TransitionMessage: sig.TransitionMessage,
	}

	if err := c.owners.Set(ctx, tenantID, phone, sig.TargetAgentID); err != nil {
		logx.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("target_agent_id", sig.TargetAgentID).
			Msg("error recording conversation owner after handoff")
	}

	target, err := c.resolver.Resolve(ctx, tenantID, sig.TargetAgentID)
	if err != nil {
		logx.Error().Err(err).
			Str("tenant_id", tenantID).
			Str("target_agent_id", sig.TargetAgentID).
			Msg("handoff target could not be resolved; skipping initial reply")
		return res
	}

	instruction := fmt.Sprintf(
		"O cliente acabou de ser transferido para você por outro assistente. "+
			"Mensagem original do cliente: %q. Mensagem de transição já enviada: %q. "+
			"Cumprimente o cliente brevemente e responda à mensagem original.",
		userMessage, sig.TransitionMessage,
	)
	res.InitialReply = c.invoker.Invoke(ctx, target, phone, instruction, nil)

	seeded := session.NewSession()
	seeded.History = []*schema.Message{schema.UserMessage(userMessage)}
	if res.InitialReply != "" {
		seeded.History = append(seeded.History, schema.AssistantMessage(res.InitialReply, nil))
	}
	key := session.Key{TenantID: tenantID, AgentID: target.ID, Phone: phone}
	if err := c.sessions.Set(ctx, key, seeded); err != nil {
		logx.Error().Err(err).Str("key", key.String()).Msg("error seeding handoff target session")
	}

	logx.Info().
		Str("tenant_id", tenantID).
		Str("target_agent_id", sig.TargetAgentID).
		Bool("initial_reply", res.InitialReply != "").
		Msg("handoff completed")
	return res
}
