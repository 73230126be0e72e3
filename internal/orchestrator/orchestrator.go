// Package orchestrator routes each inbound message to the order flow, a
// canned reply, or the model loop, and owns session persistence per turn.
package orchestrator

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/erp"
	"github.com/atendeai/core/internal/handoff"
	"github.com/atendeai/core/internal/intent"
	"github.com/atendeai/core/internal/llm"
	"github.com/atendeai/core/internal/order"
	"github.com/atendeai/core/internal/reply"
	"github.com/atendeai/core/internal/session"
	"github.com/atendeai/core/internal/tools"
	logx "github.com/atendeai/core/pkg/logger"
)

// Request is one inbound message. A non-nil empty History is the reserved
// reset signal: clear the conversation before handling the message.
type Request struct {
	TenantID string            `json:"tenant_id"`
	Phone    string            `json:"phone"`
	Text     string            `json:"text"`
	History  []*schema.Message `json:"history,omitempty"`
	AgentID  string            `json:"agent_id,omitempty"`
	Debug    bool              `json:"debug,omitempty"`
}

// Handoff tells the caller conversation ownership changed this turn.
type Handoff struct {
	TargetAgentID     string `json:"target_agent_id"`
	TransitionMessage string `json:"transition_message"`
	InitialReply      string `json:"initial_reply,omitempty"`
}

// Trace is the optional debug view of how a turn was handled.
type Trace struct {
	Intent      string           `json:"intent"`
	Branch      string           `json:"branch"`
	Rounds      int              `json:"rounds,omitempty"`
	ToolResults []llm.ToolResult `json:"tool_results,omitempty"`
}

// Response is the outcome of one turn. Reply is always non-empty.
type Response struct {
	Reply            string   `json:"reply"`
	EffectiveAgentID string   `json:"effective_agent_id"`
	Handoff          *Handoff `json:"handoff,omitempty"`
	Trace            *Trace   `json:"trace,omitempty"`
}

// Orchestrator is the conversation entry point.
type Orchestrator struct {
	resolver    *config.Resolver
	sessions    session.Store
	owners      session.CurrentAgentStore
	llm         *llm.Orchestrator
	coordinator *handoff.Coordinator
}

func New(resolver *config.Resolver, sessions session.Store, owners session.CurrentAgentStore, model *llm.Orchestrator) *Orchestrator {
	o := &Orchestrator{
		resolver: resolver,
		sessions: sessions,
		owners:   owners,
		llm:      model,
	}
	o.coordinator = handoff.NewCoordinator(resolver, sessions, owners, o)
	return o
}

// ProcessMessage handles one inbound message end to end. Unknown tenants and
// agents are the only failures that surface as errors; everything else
// resolves to reply text.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req Request) (*Response, error) {
	text := strings.TrimSpace(req.Text)

	reset := req.History != nil && len(req.History) == 0
	if reset {
		if err := o.owners.Clear(ctx, req.TenantID, req.Phone); err != nil {
			logx.Warn().Err(err).Str("tenant_id", req.TenantID).Msg("error clearing conversation owner on reset")
		}
	}

	agentID := req.AgentID
	if agentID == "" && !reset {
		owner, err := o.owners.Get(ctx, req.TenantID, req.Phone)
		if err != nil {
			logx.Warn().Err(err).Str("tenant_id", req.TenantID).Msg("error reading conversation owner; using default agent")
		} else {
			agentID = owner
		}
	}

	agent, err := o.resolver.Resolve(ctx, req.TenantID, agentID)
	if err != nil {
		return nil, err
	}

	key := session.Key{TenantID: req.TenantID, AgentID: agent.ID, Phone: req.Phone}
	if reset {
		if err := o.sessions.Clear(ctx, key); err != nil {
			logx.Warn().Err(err).Str("key", key.String()).Msg("error clearing session on reset")
		}
	}
	sess, err := o.sessions.Get(ctx, key)
	if err != nil || sess == nil {
		sess = session.NewSession()
	}
	if len(req.History) > 0 {
		// caller-supplied history overrides the stored one for this turn
		sess.History = req.History
	}

	label := intent.Classify(text)
	// explicit transfer requests must reach the model's transfer tool,
	// not the canned human-escalation reply
	if label == intent.HumanAgent && strings.Contains(strings.ToLower(text), "transfer") {
		label = intent.Unknown
	}
	// routing agents never transact themselves
	if agent.HandoffEnabled() && (label == intent.StartOrder || label == intent.StartOrderWithQuantity) {
		label = intent.Unknown
	}

	res := &Response{EffectiveAgentID: agent.ID}
	trace := &Trace{Intent: string(label)}

	switch {
	case o.orderBranch(agent, sess, label):
		trace.Branch = "order"
		machine := order.NewMachine(o.erpFor(agent), agent.Templates)
		result := machine.Handle(ctx, text, label, sess.Order, sess.LastProduct)
		sess.Order = result.Order
		res.Reply = result.Reply
		sess.AppendTurn(text, res.Reply)

	case label == intent.HumanAgent:
		trace.Branch = "human_escalation"
		res.Reply = reply.Render(agent.Templates, reply.KeyHumanEscalation, nil)
		sess.AppendTurn(text, res.Reply)

	case label == intent.Greeting:
		trace.Branch = "greeting"
		res.Reply = reply.Render(agent.Templates, reply.KeyGreeting, map[string]string{
			"agente":  agent.Name,
			"empresa": agent.CompanyName,
		})
		sess.AppendTurn(text, res.Reply)

	default:
		trace.Branch = "model"
		turn := o.respond(ctx, agent, req.Phone, text, sess.History)
		res.Reply = turn.Content
		trace.Rounds = turn.Rounds
		trace.ToolResults = turn.ToolResults

		// the loop already appended the turn; adopt its history
		sess.History = turn.Messages
		sess.Trim()
		o.rememberProduct(sess, turn.ToolResults)

		sig := turn.Handoff
		if sig == nil {
			sig = handoff.DetectFromReply(agent, turn.Content)
		}
		if sig == nil {
			sig = handoff.DetectFromConfirmation(agent, text, turn.Content, sess.History)
		}
		if sig != nil {
			done := o.coordinator.Complete(ctx, req.TenantID, req.Phone, text, sig)
			res.Handoff = &Handoff{
				TargetAgentID:     done.TargetAgentID,
				TransitionMessage: done.TransitionMessage,
				InitialReply:      done.InitialReply,
			}
		}
	}

	if strings.TrimSpace(res.Reply) == "" {
		res.Reply = reply.Render(agent.Templates, reply.KeyFallbackApology, nil)
	}

	if err := o.sessions.Set(ctx, key, sess); err != nil {
		logx.Error().Err(err).Str("key", key.String()).Msg("error persisting session")
	}

	if req.Debug {
		res.Trace = trace
	}
	logx.Info().
		Str("tenant_id", req.TenantID).
		Str("agent_id", agent.ID).
		Str("intent", string(label)).
		Str("branch", trace.Branch).
		Bool("handoff", res.Handoff != nil).
		Msg("message processed")
	return res, nil
}

// Invoke runs one model turn scoped to an agent, for the handoff
// coordinator's greeting synthesis.
func (o *Orchestrator) Invoke(ctx context.Context, agent *config.ResolvedAgent, phone, userMessage string, history []*schema.Message) string {
	return o.respond(ctx, agent, phone, userMessage, history).Content
}

var _ handoff.Invoker = (*Orchestrator)(nil)

func (o *Orchestrator) respond(ctx context.Context, agent *config.ResolvedAgent, phone, userMessage string, history []*schema.Message) *llm.Turn {
	registry := tools.Build(agent)
	call := tools.CallContext{
		TenantID: agent.TenantID,
		Phone:    phone,
		Agent:    agent,
		ERP:      o.erpFor(agent),
	}
	return o.llm.Respond(ctx, agent, registry, call, userMessage, history)
}

// orderBranch decides whether this turn belongs to the order state machine.
func (o *Orchestrator) orderBranch(agent *config.ResolvedAgent, sess *session.Session, label intent.Label) bool {
	if !agent.OrderFlowEnabled {
		return false
	}
	if sess.Order.Active() && label != intent.StockQuery {
		return true
	}
	starts := label == intent.StartOrder || label == intent.StartOrderWithQuantity
	return starts && sess.LastProduct != nil
}

func (o *Orchestrator) erpFor(agent *config.ResolvedAgent) erp.Client {
	if agent.IntegrationMode == config.ModeProduction && agent.Integration.BaseURL != "" {
		return erp.NewHTTPClient(agent.Integration.BaseURL, agent.Integration.APIKey, agent.TenantID)
	}
	return erp.NewMockClient(agent.MockProducts, agent.MockCustomers)
}

// rememberProduct keeps the last product the model looked up, so a later
// "quero comprar" can enter the order flow without a fresh search.
func (o *Orchestrator) rememberProduct(sess *session.Session, results []llm.ToolResult) {
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		switch r.Name {
		case tools.ToolSearchProducts:
			var products []erp.Product
			if err := json.Unmarshal([]byte(r.Result), &products); err == nil && len(products) > 0 {
				sess.LastProduct = &products[0]
				return
			}
		case tools.ToolProductDetails:
			var p erp.Product
			if err := json.Unmarshal([]byte(r.Result), &p); err == nil && p.SKU != "" {
				sess.LastProduct = &p
				return
			}
		}
	}
}
