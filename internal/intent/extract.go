package intent

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	minQuantity = 1
	maxQuantity = 9999
)

var (
	firstInteger = regexp.MustCompile(`\d+`)
	nonDigits    = regexp.MustCompile(`\D`)
	formattedDoc = regexp.MustCompile(`\d{3}\.\d{3}\.\d{3}-\d{2}|\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
)

// ExtractQuantity returns the first integer literal found in the text when it
// falls within [1, 9999]. The second return value reports success.
func ExtractQuantity(text string) (int, bool) {
	raw := firstInteger.FindString(text)
	if raw == "" {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < minQuantity || n > maxQuantity {
		return 0, false
	}
	return n, true
}

// ExtractDocument finds a CPF or CNPJ in the text, formatted or bare, and
// returns it normalised to its digit string (11 or 14 digits). Bare digit
// runs are checked first so a separator-less CNPJ is never truncated by a
// partial CPF match.
func ExtractDocument(text string) (string, bool) {
	for _, run := range firstInteger.FindAllString(strings.TrimSpace(text), -1) {
		if len(run) == 11 || len(run) == 14 {
			return run, true
		}
	}
	if m := formattedDoc.FindString(text); m != "" {
		digits := nonDigits.ReplaceAllString(m, "")
		if len(digits) == 11 || len(digits) == 14 {
			return digits, true
		}
	}
	return "", false
}
