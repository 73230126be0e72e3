package llm

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"unicode"

	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/atendeai/core/internal/erp"
	"github.com/atendeai/core/internal/reply"
)

// foreignScripts are scripts that occasionally leak into replies when the
// model drifts out of Portuguese. Runes in these ranges are dropped.
var foreignScripts = []*unicode.RangeTable{
	unicode.Han,
	unicode.Hiragana,
	unicode.Katakana,
	unicode.Hangul,
	unicode.Thai,
	unicode.Arabic,
	unicode.Devanagari,
	unicode.Cyrillic,
}

// StripForeignScripts removes non-Latin script runes from a reply and
// collapses any whitespace runs the removal leaves behind.
func StripForeignScripts(s string) string {
	if !strings.ContainsFunc(s, isForeignRune) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if isForeignRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isForeignRune(r rune) bool {
	return unicode.In(r, foreignScripts...)
}

// isBlank reports whether content carries nothing worth sending: empty,
// whitespace, or bare punctuation such as "...".
func isBlank(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func isTruncated(msg *schema.Message) bool {
	if msg == nil || msg.ResponseMeta == nil {
		return false
	}
	switch strings.ToLower(msg.ResponseMeta.FinishReason) {
	case "length", "max_tokens":
		return true
	}
	return false
}

// productSummary turns a raw search-tool result into a short availability
// sentence when the result is a product list. Used when the model returns an
// empty reply after a successful lookup.
func productSummary(toolResult string) (string, bool) {
	trimmed := strings.TrimSpace(toolResult)
	if !strings.HasPrefix(trimmed, "[") {
		return "", false
	}
	var products []erp.Product
	if err := json.Unmarshal([]byte(trimmed), &products); err != nil || len(products) == 0 {
		return "", false
	}
	p := products[0]
	if p.Name == "" {
		return "", false
	}
	var b strings.Builder
	b.WriteString("Encontrei ")
	b.WriteString(p.Name)
	if p.SKU != "" {
		b.WriteString(" (")
		b.WriteString(p.SKU)
		b.WriteString(")")
	}
	b.WriteString(" por R$ ")
	b.WriteString(reply.FormatBRL(p.UnitPrice()))
	if p.PromoPrice != nil && *p.PromoPrice < p.Price {
		b.WriteString(" (de R$ ")
		b.WriteString(reply.FormatBRL(p.Price))
		b.WriteString(")")
	}
	if p.Available > 0 {
		b.WriteString(", com ")
		b.WriteString(strconv.Itoa(p.Available))
		b.WriteString(" unidades disponíveis.")
	} else {
		b.WriteString(", no momento sem estoque.")
	}
	return b.String(), true
}

// classifyProviderError maps a provider failure to the template key of the
// message shown to the user.
func classifyProviderError(err error) string {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401, 403:
			return reply.KeyProviderAuth
		case 429:
			return reply.KeyProviderRateLimit
		}
		return reply.KeyProviderOffline
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "api key") || strings.Contains(msg, "unauthorized") || strings.Contains(msg, "permission"):
		return reply.KeyProviderAuth
	case strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit") || strings.Contains(msg, "resource exhausted") || strings.Contains(msg, "429"):
		return reply.KeyProviderRateLimit
	}
	return reply.KeyProviderOffline
}
