package tier

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Threshold is a parsed breakpoint. Upper is display-only.
type Threshold struct {
	Lower decimal.Decimal
	Upper decimal.NullDecimal
}

var (
	// fee fragments are removed before threshold matching so rates never read as amounts
	feeParenRe = regexp.MustCompile(`(?i)\([^)]*(?:%|n/?\s?a)[^)]*\)`)
	feeBareRe  = regexp.MustCompile(`(?i)` + numPattern + `\s*%`)

	underRe  = regexp.MustCompile(`(?i)(?:under|less\s+than|below|up\s+to|first|<=?)\s*\$?\s*` + amountPattern)
	rangeRe  = regexp.MustCompile(`(?i)\$\s*` + amountPattern + `\s*(?:-|to)\s*\$?\s*` + amountPattern)
	plusRe   = regexp.MustCompile(`(?i)\$?\s*` + amountPattern + `\s*\+`)
	overRe   = regexp.MustCompile(`(?i)(?:over|above|more\s+than|greater\s+than|in\s+excess\s+of|>=?)\s*\$?\s*` + amountPattern)
	dollarRe = regexp.MustCompile(`(?i)\$\s*` + amountPattern)
	bareRe   = regexp.MustCompile(`(?i)^\s*` + amountPattern + `\s*$`)
)

// ParseThreshold extracts the lower bound (and any display upper bound) from
// a threshold cell. Combined cells such as "$0 - $1,000,000 (1.00%)" are
// accepted; the fee part is ignored here.
func ParseThreshold(s string) (Threshold, bool) {
	s = Clean(s)
	if IsPlaceholder(s) {
		return Threshold{}, false
	}
	s = feeParenRe.ReplaceAllString(s, " ")
	s = feeBareRe.ReplaceAllString(s, " ")

	if m := underRe.FindStringSubmatch(s); m != nil {
		if upper, ok := parseAmount(m[1], m[2]); ok {
			return Threshold{Lower: decimal.Zero, Upper: decimal.NewNullDecimal(upper)}, true
		}
	}
	if m := rangeRe.FindStringSubmatch(s); m != nil {
		lower, okL := parseAmount(m[1], m[2])
		upper, okU := parseAmount(m[3], m[4])
		if okL && okU {
			return Threshold{Lower: lower, Upper: decimal.NewNullDecimal(upper)}, true
		}
	}
	for _, re := range []*regexp.Regexp{plusRe, overRe, dollarRe, bareRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			if lower, ok := parseAmount(m[1], m[2]); ok {
				return Threshold{Lower: lower}, true
			}
		}
	}
	return Threshold{}, false
}
