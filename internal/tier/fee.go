package tier

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Fee is a parsed fee cell.
type Fee struct {
	Kind   model.FeeKind
	Rate   decimal.Decimal
	Low    decimal.Decimal
	High   decimal.Decimal
	Amount decimal.Decimal
}

const rangeSep = `\s*%?\s*(?:-|to)\s*`

var (
	pctRangeParenRe  = regexp.MustCompile(`(?i)\(\s*` + numPattern + rangeSep + numPattern + `\s*%\s*\)`)
	pctSingleParenRe = regexp.MustCompile(`(?i)\(\s*` + numPattern + `\s*%\s*\)`)
	pctRangeRe       = regexp.MustCompile(`(?i)(?:^|[^\d,.$])` + numPattern + rangeSep + numPattern + `\s*%`)
	pctSingleRe      = regexp.MustCompile(`(?i)` + numPattern + `\s*%`)
	naParenRe        = regexp.MustCompile(`(?i)\(\s*n/?\s?a\s*\)`)
	flatAmountRe     = regexp.MustCompile(`(?i)\$\s*` + amountPattern)
)

// ParseFee extracts a fee from a cell. When standalone is false the cell is a
// combined threshold/fee cell and only percentage forms are recognised, since
// dollar figures there are thresholds.
func ParseFee(s string, standalone bool) (Fee, bool) {
	s = Clean(s)
	if IsPlaceholder(s) {
		return Fee{}, false
	}

	if m := pctRangeParenRe.FindStringSubmatch(s); m != nil {
		return rangeFee(m[1], m[2])
	}
	if m := pctSingleParenRe.FindStringSubmatch(s); m != nil {
		return percentFee(m[1])
	}
	if m := pctRangeRe.FindStringSubmatch(s); m != nil {
		return rangeFee(m[1], m[2])
	}
	if m := pctSingleRe.FindStringSubmatch(s); m != nil {
		return percentFee(m[1])
	}
	if naParenRe.MatchString(s) {
		return Fee{Kind: model.FeeKindNotAvailable}, true
	}
	if !standalone {
		return Fee{}, false
	}

	if m := flatAmountRe.FindStringSubmatch(s); m != nil {
		if amt, ok := parseAmount(m[1], m[2]); ok {
			return Fee{Kind: model.FeeKindFlatFee, Amount: amt}, true
		}
	}
	// a bare number in a fee cell is a rate in percentage points
	if m := bareRe.FindStringSubmatch(s); m != nil && m[2] == "" {
		return percentFee(m[1])
	}
	if strings.Contains(strings.ToLower(s), "n/a") {
		return Fee{Kind: model.FeeKindNotAvailable}, true
	}
	return Fee{}, false
}

func percentFee(num string) (Fee, bool) {
	rate, ok := parseAmount(num, "")
	if !ok {
		return Fee{}, false
	}
	return Fee{Kind: model.FeeKindPercentage, Rate: rate}, true
}

func rangeFee(lo, hi string) (Fee, bool) {
	low, okL := parseAmount(lo, "")
	high, okH := parseAmount(hi, "")
	if !okL || !okH {
		return Fee{}, false
	}
	if low.Equal(high) {
		return Fee{Kind: model.FeeKindPercentage, Rate: low}, true
	}
	return Fee{Kind: model.FeeKindPercentageRange, Low: low, High: high}, true
}

func (f Fee) apply(t *model.Tier) {
	t.FeeKind = f.Kind
	t.Rate = f.Rate
	t.RateLow = f.Low
	t.RateHigh = f.High
	t.Amount = f.Amount
}
