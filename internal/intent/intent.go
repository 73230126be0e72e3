// Package intent classifies inbound customer messages into coarse labels
// used to pick a handling strategy before any model call is made.
package intent

import (
	"regexp"
	"strings"
)

// Label is the coarse classification of an inbound message.
type Label string

const (
	Unknown                Label = "UNKNOWN"
	Greeting               Label = "GREETING"
	StockQuery             Label = "STOCK_QUERY"
	OrderStatus            Label = "ORDER_STATUS"
	Financial              Label = "FINANCIAL"
	StartOrder             Label = "START_ORDER"
	StartOrderWithQuantity Label = "START_ORDER_WITH_QUANTITY"
	ProvideDocument        Label = "PROVIDE_DOCUMENT"
	ProvideQuantity        Label = "PROVIDE_QUANTITY"
	Confirm                Label = "CONFIRM"
	Deny                   Label = "DENY"
	HumanAgent             Label = "HUMAN_AGENT"
)

// rule binds an ordered pattern group to the label it yields.
type rule struct {
	label    Label
	patterns []*regexp.Regexp
}

// rules is evaluated in order; the first group with a matching pattern wins.
// Order matters: document shapes must be tested before generic digit runs,
// and explicit order phrasing before short affirmations.
var rules = []rule{
	{ProvideDocument, []*regexp.Regexp{
		regexp.MustCompile(`\d{3}\.\d{3}\.\d{3}-\d{2}`),       // formatted CPF
		regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`), // formatted CNPJ
		regexp.MustCompile(`(?:^|\D)(\d{11}|\d{14})(?:\D|$)`), // bare digit runs
	}},
	{StartOrderWithQuantity, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(sim|quero|vou querer|pode ser|confirmo|me vê|me ve)\b.*\b\d{1,4}\s*(unidades?|itens?|pe[cç]as?|caixas?)\b`),
		regexp.MustCompile(`(?i)\b\d{1,4}\s*(unidades?|itens?|pe[cç]as?|caixas?)\b.*\b(por favor|pfv|desse|deste|do produto)\b`),
	}},
	{Confirm, []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(sim|s|ok|okay|claro|confirmo|confirmar|confirma|pode confirmar|isso|isso mesmo|exato|correto|certo|perfeito|fechado|fechou|beleza|blz|pode ser|quero|aceito)[\s!.,]*$`),
	}},
	{Deny, []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(n[aã]o|n|nao quero|n[aã]o quero|cancela|cancelar|deixa|deixa pra l[aá]|desisto|melhor n[aã]o|agora n[aã]o)[\s!.,]*$`),
	}},
	{HumanAgent, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(atendente|humano|falar com (algu[eé]m|uma pessoa|gente)|pessoa de verdade|suporte humano|atendimento humano)\b`),
	}},
	{StartOrder, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(quero comprar|gostaria de comprar|fazer (um |o )?pedido|realizar (um |o )?pedido|quero adquirir|vou levar|fechar (o )?pedido|efetuar (a )?compra|quero encomendar)\b`),
	}},
	{Financial, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(boleto|fatura|cobran[cç]a|financeiro|segunda via|pagamento|d[eé]bito|vencimento|nota fiscal|em aberto)\b`),
	}},
	{OrderStatus, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(status|andamento|rastrear|rastreio|acompanhar|previs[aã]o)\b.*\b(pedido|entrega|compra)\b`),
		regexp.MustCompile(`(?i)\b(meu pedido|cad[eê] (o |meu )?pedido|pedido chegou|quando chega)\b`),
	}},
	{StockQuery, []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(estoque|disponibilidade|dispon[ií]vel|tem dispon[ií]vel|pre[cç]o|valor|quanto custa|quanto [eé]|produto|cat[aá]logo)\b`),
		regexp.MustCompile(`\b[A-Z]{2,}[A-Z0-9]*-?\d{2,}\b`), // SKU-shaped token
	}},
	{Greeting, []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*(oi+|ol[aá]|bom dia|boa tarde|boa noite|e a[ií]|opa|hey|hello|alo|al[oô])[\s!,.?]*$`),
	}},
}

var allDigits = regexp.MustCompile(`^\d+$`)

// Classify maps raw message text to an intent label. It is pure, stateless
// and case-insensitive. Pure-digit inputs short-circuit the rule table:
// CPF/CNPJ lengths mean a document, any other length means a quantity.
func Classify(text string) Label {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Unknown
	}

	if allDigits.MatchString(trimmed) {
		if len(trimmed) == 11 || len(trimmed) == 14 {
			return ProvideDocument
		}
		return ProvideQuantity
	}

	for _, r := range rules {
		for _, p := range r.patterns {
			if p.MatchString(trimmed) {
				return r.label
			}
		}
	}
	return Unknown
}
