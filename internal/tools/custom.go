package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
)

const customToolTimeout = 10 * time.Second

// customDefinitions turns tenant-custom tool declarations into registry
// definitions backed by their HTTP endpoints.
func customDefinitions(defs []config.CustomTool) map[string]Definition {
	out := make(map[string]Definition, len(defs))
	for _, ct := range defs {
		params := make(map[string]*schema.ParameterInfo, len(ct.Params))
		for _, p := range ct.Params {
			typ := p.Type
			if typ == "" {
				typ = "string"
			}
			params[p.Name] = &schema.ParameterInfo{
				Type:     schema.DataType(typ),
				Desc:     p.Description,
				Required: p.Required,
			}
		}
		endpoint := ct.Endpoint
		out[ct.Name] = Definition{
			Info: &schema.ToolInfo{
				Name:        ct.Name,
				Desc:        ct.Description,
				ParamsOneOf: schema.NewParamsOneOfByParams(params),
			},
			Exec: ExecutorFunc(func(ctx context.Context, call CallContext, args map[string]any) (string, error) {
				return execCustomEndpoint(ctx, endpoint, call, args)
			}),
		}
	}
	return out
}

func execCustomEndpoint(ctx context.Context, endpoint string, call CallContext, args map[string]any) (string, error) {
	if endpoint == "" {
		return "", fmt.Errorf("custom tool has no endpoint configured")
	}

	payload := map[string]any{
		"tenant_id": call.TenantID,
		"agent_id":  call.Agent.ID,
		"phone":     call.Phone,
		"args":      args,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal custom tool payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, customToolTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build custom tool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("custom tool request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return "", fmt.Errorf("read custom tool response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("custom tool status %d", resp.StatusCode)
	}
	return string(raw), nil
}
