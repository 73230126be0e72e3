// Package handoff decides when a conversation changes hands between two
// agents of the same tenant, and produces the receiving agent's first
// message.
package handoff

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/intent"
	"github.com/atendeai/core/internal/reply"
	"github.com/atendeai/core/internal/tools"
)

// Free-text detection is a safety net for replies that narrate a transfer
// without calling the transfer tool. Best effort only; the tool is the
// primary signal.
var (
	transferVerbs = regexp.MustCompile(`(?i)\b(transferir|transferindo|transfiro|encaminhar|encaminhando|encaminho|direcionar|direcionando|direciono|repassar|repassando|passar você|passando você|te passar|te encaminhar)\b`)

	areaMentions = regexp.MustCompile(`(?i)\b(vendas|comercial|financeiro|financeira|cobran[çc]a|suporte|t[ée]cnico|pedidos|log[íi]stica|atendimento humano)\b`)

	// Replies that merely ask permission to transfer are not a transfer.
	permissionAsk = regexp.MustCompile(`(?i)\b(posso|deseja|gostaria|quer que|prefere)\b`)

	// Destination routes that look like a sales desk, for fallback targeting.
	salesRoute = regexp.MustCompile(`(?i)vendas|comercial|sales`)
)

// longReplyThreshold: a transfer verb inside a long narration counts even
// without a named area.
const longReplyThreshold = 120

// DetectFromReply inspects a model reply for a transfer announcement the
// model phrased without invoking the transfer tool. Returns nil when the
// reply does not read as a committed transfer.
func DetectFromReply(agent *config.ResolvedAgent, replyText string) *tools.HandoffSignal {
	if !agent.HandoffEnabled() {
		return nil
	}
	if !transferVerbs.MatchString(replyText) {
		return nil
	}
	if permissionAsk.MatchString(replyText) && strings.Contains(replyText, "?") {
		return nil
	}
	mentioned := areaMentions.FindString(replyText)
	if mentioned == "" && utf8.RuneCountInString(replyText) < longReplyThreshold {
		return nil
	}
	return &tools.HandoffSignal{
		TargetAgentID:     pickRoute(agent, mentioned),
		TransitionMessage: replyText,
	}
}

// DetectFromConfirmation handles the pattern where the previous assistant
// turn asked "posso transferir?", the user answered with a bare "sim", and
// the model then degenerated to the generic apology. The coordinator
// synthesizes the transfer the model failed to produce.
func DetectFromConfirmation(agent *config.ResolvedAgent, userText, replyText string, history []*schema.Message) *tools.HandoffSignal {
	if !agent.HandoffEnabled() {
		return nil
	}
	if replyText != reply.Render(agent.Templates, reply.KeyFallbackApology, nil) {
		return nil
	}
	if intent.Classify(userText) != intent.Confirm {
		return nil
	}
	prev := lastAssistantMessage(history)
	if prev == "" || !transferVerbs.MatchString(prev) || !strings.Contains(prev, "?") {
		return nil
	}
	return &tools.HandoffSignal{
		TargetAgentID:     pickRoute(agent, ""),
		TransitionMessage: "Perfeito! Vou transferir seu atendimento agora. Um momento, por favor.",
	}
}

// pickRoute maps a mentioned area to a configured route: an id/label match
// first, then a sales-looking route, then the first configured route.
func pickRoute(agent *config.ResolvedAgent, mentioned string) string {
	routes := agent.HandoffRoutes
	if mentioned != "" {
		needle := strings.ToLower(mentioned)
		for _, r := range routes {
			if strings.Contains(strings.ToLower(r.TargetAgentID), needle) ||
				strings.Contains(strings.ToLower(r.Label), needle) {
				return r.TargetAgentID
			}
		}
	}
	for _, r := range routes {
		if salesRoute.MatchString(r.TargetAgentID) || salesRoute.MatchString(r.Label) {
			return r.TargetAgentID
		}
	}
	return routes[0].TargetAgentID
}

func lastAssistantMessage(history []*schema.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i] != nil && history[i].Role == schema.Assistant {
			return history[i].Content
		}
	}
	return ""
}
