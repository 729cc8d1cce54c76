// Package verify checks a member's claim against the screenshot evidence:
// OCR text parsing plus an independent icon template cross-check.
package verify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	successPattern = regexp.MustCompile(`(?i)(sucesso|conclu[ií]d[oa])`)
	animalsPattern = regexp.MustCompile(`(?i)(\d+)\s*anima(?:is|l)`)
	moneyPattern   = regexp.MustCompile(`\$\s*(\d+(?:[.,]\d+)?)`)
	numberPattern  = regexp.MustCompile(`\d+`)

	// Generic game-interface markers used by the lenient fallback.
	interfacePattern = regexp.MustCompile(`(?i)(invent[aá]rio|fazenda|ba[uú]|mochila|itens|quantidade)`)
)

// Synonyms recognized next to quantities for the staple crops. Unknown crops
// fall back to patterns built from their own name.
var cropSynonyms = map[string][]string{
	"Milho": {"milho", "corn"},
	"Trigo": {"trigo", "wheat"},
	"Junco": {"junco", "reed"},
}

// FieldResult is the outcome of parsing the OCR text for one claim.
type FieldResult struct {
	Valid        bool
	Quantity     int64
	FarmIncome   decimal.Decimal
	UsedFallback bool
	Message      string
}

// ExtractAnimal parses an animal delivery screenshot: it must carry the
// success marker, a delivered-animal count and the farm income value.
func ExtractAnimal(text string) FieldResult {
	if !successPattern.MatchString(text) {
		return FieldResult{Message: "não encontrei a confirmação de entrega na imagem"}
	}

	m := animalsPattern.FindStringSubmatch(text)
	if m == nil {
		return FieldResult{Message: "não encontrei a quantidade de animais na imagem"}
	}
	quantity, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil || quantity <= 0 {
		return FieldResult{Message: "quantidade de animais ilegível na imagem"}
	}

	im := moneyPattern.FindStringSubmatch(text)
	if im == nil {
		return FieldResult{Message: "não encontrei o valor da renda na imagem"}
	}
	income, err := decimal.NewFromString(strings.ReplaceAll(im[1], ",", "."))
	if err != nil {
		return FieldResult{Message: "valor da renda ilegível na imagem"}
	}

	return FieldResult{Valid: true, Quantity: quantity, FarmIncome: income}
}

// ValidatePlant checks that the screenshot shows at least the claimed crop
// quantity. Crop-adjacent patterns are tried first; then every number in the
// text is scanned for an exact match, then a close match; finally, when the
// text at least looks like the game interface and the claim is small, the
// claim is accepted on trust and flagged for human review.
func ValidatePlant(text, crop string, claimed int64) FieldResult {
	for _, re := range cropPatterns(crop) {
		if m := re.FindStringSubmatch(text); m != nil {
			found, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			if found < claimed {
				return FieldResult{
					Quantity: found,
					Message:  fmt.Sprintf("inventário mostra %d de %s, menos que os %d declarados", found, crop, claimed),
				}
			}
			return FieldResult{Valid: true, Quantity: found}
		}
	}

	numbers := allNumbers(text)

	for _, n := range numbers {
		if n == claimed {
			return FieldResult{Valid: true, Quantity: n}
		}
	}

	tolerance := claimed / 10
	if tolerance < 20 {
		tolerance = 20
	}
	floor := claimed * 8 / 10
	for _, n := range numbers {
		diff := n - claimed
		if diff < 0 {
			diff = -diff
		}
		if diff <= tolerance && n >= floor {
			return FieldResult{Valid: true, Quantity: n}
		}
	}

	// Lenient fallback: generic interface text plus a modest claim. Known
	// trust gap; the caller must force human review on this path.
	if claimed <= 1000 && interfacePattern.MatchString(text) {
		return FieldResult{
			Valid:        true,
			Quantity:     claimed,
			UsedFallback: true,
			Message:      fmt.Sprintf("quantidade não confirmada na imagem; aceito por tolerância (%d ≤ 1000)", claimed),
		}
	}

	return FieldResult{Message: fmt.Sprintf("não encontrei %d de %s na imagem", claimed, crop)}
}

func cropPatterns(crop string) []*regexp.Regexp {
	names := cropSynonyms[crop]
	if len(names) == 0 {
		names = []string{strings.ToLower(crop)}
	}

	var patterns []*regexp.Regexp
	for _, name := range names {
		quoted := regexp.QuoteMeta(name)
		patterns = append(patterns,
			regexp.MustCompile(`(?i)`+quoted+`\D{0,6}(\d+)`),
			regexp.MustCompile(`(?i)(\d+)\s*x?\s*(?:de\s+)?`+quoted),
		)
	}
	return patterns
}

func allNumbers(text string) []int64 {
	var out []int64
	for _, m := range numberPattern.FindAllString(text, -1) {
		if n, err := strconv.ParseInt(m, 10, 64); err == nil {
			out = append(out, n)
		}
	}
	return out
}
