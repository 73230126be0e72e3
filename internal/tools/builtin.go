package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/atendeai/core/internal/config"
)

// Built-in tool identifiers.
const (
	ToolSearchProducts   = "buscar_produtos"
	ToolProductDetails   = "detalhar_produto"
	ToolValidateCustomer = "validar_cliente"
	ToolOrderStatus      = "status_pedido"
	ToolOpenInvoices     = "boletos_em_aberto"
)

// Build assembles the effective registry for one resolved agent: either its
// explicit allow-list resolved against built-in and tenant-custom
// definitions or, absent an allow-list, the built-ins gated by the agent's
// feature flags. The handoff tool is appended whenever routing is enabled.
func Build(agent *config.ResolvedAgent) *Registry {
	builtins := builtinDefinitions()
	custom := customDefinitions(agent.CustomTools)

	reg := NewRegistry()
	if len(agent.Tools) > 0 {
		for _, name := range agent.Tools {
			if def, ok := builtins[name]; ok {
				reg.Add(def)
				continue
			}
			if def, ok := custom[name]; ok {
				reg.Add(def)
			}
		}
	} else {
		reg.Add(builtins[ToolSearchProducts])
		reg.Add(builtins[ToolProductDetails])
		reg.Add(builtins[ToolOrderStatus])
		if agent.OrderFlowEnabled {
			reg.Add(builtins[ToolValidateCustomer])
		}
		if agent.FinancialEnabled {
			reg.Add(builtins[ToolOpenInvoices])
		}
		for _, def := range custom {
			reg.Add(def)
		}
	}

	if agent.HandoffEnabled() {
		reg.Add(handoffDefinition(agent))
	}
	return reg
}

func builtinDefinitions() map[string]Definition {
	return map[string]Definition{
		ToolSearchProducts: {
			Info: &schema.ToolInfo{
				Name: ToolSearchProducts,
				Desc: "Busca produtos no catálogo por nome ou SKU. Retorna nome, SKU, preço, preço promocional e estoque disponível. Use sempre que o cliente mencionar um produto.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"query": {
						Type:     "string",
						Desc:     "Termo de busca: nome do produto, parte do nome ou SKU.",
						Required: true,
					},
				}),
			},
			Exec: ExecutorFunc(execSearchProducts),
		},
		ToolProductDetails: {
			Info: &schema.ToolInfo{
				Name: ToolProductDetails,
				Desc: "Consulta um produto específico pelo SKU exato obtido em buscar_produtos.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"sku": {
						Type:     "string",
						Desc:     "SKU exato do produto, por exemplo CIM-5001.",
						Required: true,
					},
				}),
			},
			Exec: ExecutorFunc(execProductDetails),
		},
		ToolValidateCustomer: {
			Info: &schema.ToolInfo{
				Name: ToolValidateCustomer,
				Desc: "Valida o cadastro de um cliente pelo CPF ou CNPJ (somente dígitos). Retorna o nome do cliente ou o motivo do bloqueio.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"documento": {
						Type:     "string",
						Desc:     "CPF (11 dígitos) ou CNPJ (14 dígitos), sem pontuação.",
						Required: true,
					},
				}),
			},
			Exec: ExecutorFunc(execValidateCustomer),
		},
		ToolOrderStatus: {
			Info: &schema.ToolInfo{
				Name: ToolOrderStatus,
				Desc: "Lista os pedidos recentes de um cliente e o status de entrega de cada um.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"documento": {
						Type:     "string",
						Desc:     "CPF ou CNPJ do cliente, somente dígitos.",
						Required: true,
					},
				}),
			},
			Exec: ExecutorFunc(execOrderStatus),
		},
		ToolOpenInvoices: {
			Info: &schema.ToolInfo{
				Name: ToolOpenInvoices,
				Desc: "Lista boletos em aberto de um cliente, com valor, vencimento e linha digitável.",
				ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
					"documento": {
						Type:     "string",
						Desc:     "CPF ou CNPJ do cliente, somente dígitos.",
						Required: true,
					},
				}),
			},
			Exec: ExecutorFunc(execOpenInvoices),
		},
	}
}

func execSearchProducts(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	query := stringArg(args, "query")
	if query == "" {
		return "", fmt.Errorf("query is required")
	}
	products, err := call.ERP.SearchProducts(ctx, query)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return `[]`, nil
	}
	b, err := json.Marshal(products)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func execProductDetails(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	sku := stringArg(args, "sku")
	if sku == "" {
		return "", fmt.Errorf("sku is required")
	}
	product, err := call.ERP.GetProduct(ctx, sku)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(product)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func execValidateCustomer(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	document := stringArg(args, "documento")
	if document == "" {
		return "", fmt.Errorf("documento is required")
	}
	res, err := call.ERP.ValidateCustomer(ctx, document)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(res)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func execOrderStatus(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	document := stringArg(args, "documento")
	if document == "" {
		return "", fmt.Errorf("documento is required")
	}
	orders, err := call.ERP.ListOrders(ctx, document)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(orders)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func execOpenInvoices(ctx context.Context, call CallContext, args map[string]any) (string, error) {
	document := stringArg(args, "documento")
	if document == "" {
		return "", fmt.Errorf("documento is required")
	}
	invoices, err := call.ERP.ListOpenInvoices(ctx, document)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(invoices)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
