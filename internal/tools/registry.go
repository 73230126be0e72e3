// Package tools maps tool identifiers to explicit executors and builds the
// per-request registry the model orchestrator dispatches against.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
	"github.com/atendeai/core/internal/erp"
	logx "github.com/atendeai/core/pkg/logger"
)

// CallContext carries the tenant/agent scope a tool executes under.
type CallContext struct {
	TenantID string
	Phone    string
	Agent    *config.ResolvedAgent
	ERP      erp.Client
}

// Executor runs one tool call. The returned string is what the model sees;
// executors should return errors for exceptional cases only — the registry
// converts them to error strings at the boundary.
type Executor interface {
	Execute(ctx context.Context, call CallContext, args map[string]any) (string, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, call CallContext, args map[string]any) (string, error)

func (f ExecutorFunc) Execute(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	return f(ctx, call, args)
}

// Definition pairs a tool's schema with its executor.
type Definition struct {
	Info *schema.ToolInfo
	Exec Executor
}

// Registry holds the effective tool set for one request.
type Registry struct {
	order []string
	defs  map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Add registers a definition, replacing any previous one with the same name.
func (r *Registry) Add(def Definition) {
	name := def.Info.Name
	if _, exists := r.defs[name]; !exists {
		r.order = append(r.order, name)
	}
	r.defs[name] = def
}

// Infos returns the tool schemas in registration order, for model binding.
func (r *Registry) Infos() []*schema.ToolInfo {
	infos := make([]*schema.ToolInfo, 0, len(r.order))
	for _, name := range r.order {
		infos = append(infos, r.defs[name].Info)
	}
	return infos
}

// Len reports how many tools are registered.
func (r *Registry) Len() int {
	return len(r.order)
}

// Execute runs the named tool with raw JSON arguments. It never propagates
// a failure: unknown tools, malformed arguments, executor errors and panics
// all become a compact error string fed back to the model.
func (r *Registry) Execute(ctx context.Context, call CallContext, name, rawArgs string) (result string) {
	defer func() {
		if rec := recover(); rec != nil {
			logx.Error().Str("tool", name).Msgf("tool panic recovered: %v", rec)
			result = errorResult(name, "internal tool failure")
		}
	}()

	def, ok := r.defs[name]
	if !ok {
		logx.Warn().Str("tool_name", name).Str("arguments", rawArgs).
			Msg("unknown or invalid tool call; returning fallback result")
		return errorResult(name, "unknown_tool")
	}

	args := map[string]any{}
	if strings.TrimSpace(rawArgs) != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			logx.Warn().Err(err).Str("tool", name).Msg("tool arguments are not valid JSON")
			return errorResult(name, "invalid_arguments")
		}
	}

	out, err := def.Exec.Execute(ctx, call, args)
	if err != nil {
		logx.Error().Err(err).Str("tool", name).Msg("tool execution failed")
		return errorResult(name, err.Error())
	}
	return out
}

func errorResult(name, detail string) string {
	b, err := json.Marshal(map[string]string{"error": detail, "tool": name})
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, detail)
	}
	return string(b)
}

// stringArg extracts and trims a string argument, coercing other scalars.
func stringArg(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	switch vv := v.(type) {
	case string:
		return strings.TrimSpace(vv)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
