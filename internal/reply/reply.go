// Package reply renders user-facing reply text from tenant-configurable
// templates, falling back to built-in Portuguese defaults.
package reply

import (
	"fmt"
	"strings"
)

// Template keys. Tenants may override any of them in their configuration.
const (
	KeyAskProduct        = "order.ask_product"
	KeyAskDocument       = "order.ask_document"
	KeyInvalidDocument   = "order.invalid_document"
	KeyCustomerBlocked   = "order.customer_blocked"
	KeyCustomerNotFound  = "order.customer_not_found"
	KeyValidationRetry   = "order.validation_retry"
	KeyQuantityNoted     = "order.quantity_noted"
	KeyAskQuantity       = "order.ask_quantity"
	KeyInvalidQuantity   = "order.invalid_quantity"
	KeyStockClamped      = "order.stock_clamped"
	KeyOutOfStock        = "order.out_of_stock"
	KeySummary           = "order.summary"
	KeyAskYesNo          = "order.ask_yes_no"
	KeyOrderSuccess      = "order.success"
	KeyOrderFallback     = "order.submit_fallback"
	KeyOrderCancelled    = "order.cancelled"
	KeyGreeting          = "conversation.greeting"
	KeyHumanEscalation   = "conversation.human_escalation"
	KeyFallbackApology   = "conversation.fallback_apology"
	KeyTruncationNotice  = "conversation.truncation_notice"
	KeyProviderAuth      = "provider.auth_failure"
	KeyProviderRateLimit = "provider.rate_limited"
	KeyProviderOffline   = "provider.connectivity"
)

// defaults are the built-in Portuguese templates.
var defaults = map[string]string{
	KeyAskProduct:        "Claro! Qual produto você gostaria de pedir?",
	KeyAskDocument:       "Perfeito! Para continuar, me informe seu CPF ou CNPJ, por favor.",
	KeyInvalidDocument:   "Não consegui identificar um CPF ou CNPJ válido. Pode conferir e enviar novamente?",
	KeyCustomerBlocked:   "Encontrei uma restrição no seu cadastro: {motivo}. Por favor, entre em contato com nosso setor financeiro para regularizar.",
	KeyCustomerNotFound:  "Não encontrei seu cadastro com esse documento. Pode conferir o número e enviar novamente?",
	KeyValidationRetry:   "Tive um problema ao validar seu documento agora. Pode enviar novamente, por favor?",
	KeyQuantityNoted:     "Anotado: {quantidade} unidades de {produto}, total R$ {total}. Para continuar, me informe seu CPF ou CNPJ, por favor.",
	KeyAskQuantity:       "Obrigado, {cliente}! Quantas unidades de {produto} você deseja?",
	KeyInvalidQuantity:   "Não entendi a quantidade. Pode me informar um número, por favor?",
	KeyStockClamped:      "No momento temos {estoque} unidades de {produto} disponíveis, então ajustei seu pedido para {quantidade} unidades, totalizando R$ {total}. Posso confirmar? (sim/não)",
	KeyOutOfStock:        "Poxa, {produto} está sem estoque no momento. Posso verificar um produto parecido para você?",
	KeySummary:           "Resumo do pedido: {quantidade} unidades de {produto} por R$ {unitario} cada, total R$ {total}. Posso confirmar? (sim/não)",
	KeyAskYesNo:          "Só preciso de uma confirmação: posso fechar o pedido? Responda sim ou não, por favor.",
	KeyOrderSuccess:      "Pedido confirmado! {mensagem} Número do pedido: {pedido}.",
	KeyOrderFallback:     "Seu pedido foi registrado e nossa equipe vai confirmar os detalhes em breve. Obrigado!",
	KeyOrderCancelled:    "Sem problemas, pedido cancelado. Se precisar de algo mais, é só chamar!",
	KeyGreeting:          "Olá! Eu sou {agente}, assistente da {empresa}. Como posso ajudar você hoje?",
	KeyHumanEscalation:   "Entendi! Já estou acionando um de nossos atendentes para continuar seu atendimento. Um momento, por favor.",
	KeyFallbackApology:   "Desculpe, não consegui processar sua mensagem agora. Pode tentar novamente, por favor?",
	KeyTruncationNotice:  "\n\n(Minha resposta foi resumida. Se quiser mais detalhes, é só pedir!)",
	KeyProviderAuth:      "Estamos com uma instabilidade na configuração do assistente. Por favor, tente novamente em alguns minutos.",
	KeyProviderRateLimit: "Estamos recebendo muitas mensagens neste momento. Pode tentar novamente em alguns segundos?",
	KeyProviderOffline:   "Não consegui me conectar ao assistente agora. Por favor, tente novamente em instantes.",
}

// Render substitutes {named} placeholders into the tenant's template for
// key, or the built-in default when the tenant has no override.
func Render(overrides map[string]string, key string, vars map[string]string) string {
	tpl, ok := overrides[key]
	if !ok || tpl == "" {
		tpl = defaults[key]
	}
	if tpl == "" {
		return defaults[KeyFallbackApology]
	}
	if len(vars) == 0 {
		return tpl
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tpl)
}

// Default returns the built-in template for key, ignoring overrides.
func Default(key string) string {
	return defaults[key]
}

// FormatBRL renders a currency amount with exactly two decimal places and a
// comma separator, e.g. 62 -> "62,00".
func FormatBRL(v float64) string {
	return strings.Replace(fmt.Sprintf("%.2f", v), ".", ",", 1)
}
