// Package session holds per-conversation state: rolling message history,
// the order flow progress and the last product referenced.
package session

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/erp"
)

// HistoryLimit caps the rolling history after each turn.
const HistoryLimit = 20

// OrderState enumerates the order state machine positions.
type OrderState string

const (
	OrderIdle                 OrderState = "idle"
	OrderAwaitingCPF          OrderState = "awaiting_cpf"
	OrderAwaitingQuantity     OrderState = "awaiting_quantity"
	OrderAwaitingConfirmation OrderState = "awaiting_confirmation"
	// OrderCompleted is terminal and never persisted between turns; the
	// orchestrator swaps in a fresh idle session the same turn.
	OrderCompleted OrderState = "completed"
)

// OrderSession tracks one in-flight purchase. Quantity is only set when
// Product is known; CustomerName only after a successful validation.
type OrderSession struct {
	State        OrderState   `json:"state"`
	Product      *erp.Product `json:"product,omitempty"`
	Document     string       `json:"document,omitempty"`
	Quantity     int          `json:"quantity,omitempty"`
	CustomerName string       `json:"customer_name,omitempty"`
}

// NewOrderSession returns a fresh idle order session.
func NewOrderSession() OrderSession {
	return OrderSession{State: OrderIdle}
}

// Active reports whether the order flow is mid-capture.
func (o OrderSession) Active() bool {
	return o.State != OrderIdle && o.State != OrderCompleted
}

// Session is the conversation state for one (tenant, agent, phone) key.
type Session struct {
	History     []*schema.Message `json:"history"`
	Order       OrderSession      `json:"order"`
	LastProduct *erp.Product      `json:"last_product,omitempty"`
}

// NewSession returns an empty session with an idle order flow.
func NewSession() *Session {
	return &Session{Order: NewOrderSession()}
}

// AppendTurn records a user/assistant exchange and trims to HistoryLimit.
func (s *Session) AppendTurn(userText, assistantText string) {
	s.History = append(s.History,
		schema.UserMessage(userText),
		schema.AssistantMessage(assistantText, nil),
	)
	s.Trim()
}

// Trim drops the oldest entries beyond HistoryLimit.
func (s *Session) Trim() {
	if len(s.History) > HistoryLimit {
		s.History = append([]*schema.Message(nil), s.History[len(s.History)-HistoryLimit:]...)
	}
}

// Key identifies a conversation session.
type Key struct {
	TenantID string
	AgentID  string
	Phone    string
}

// String renders the storage key. The agent segment may be empty for
// conversations that never selected an explicit agent.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.AgentID, k.Phone)
}

// Store persists conversation sessions. Get never fails on a missing key;
// it returns a freshly created session instead.
type Store interface {
	Get(ctx context.Context, key Key) (*Session, error)
	Set(ctx context.Context, key Key, s *Session) error
	Clear(ctx context.Context, key Key) error
}

// CurrentAgentStore records which agent owns a (tenant, phone) conversation
// after a handoff. Get returns "" when no owner is recorded.
type CurrentAgentStore interface {
	Get(ctx context.Context, tenantID, phone string) (string, error)
	Set(ctx context.Context, tenantID, phone, agentID string) error
	Clear(ctx context.Context, tenantID, phone string) error
}
