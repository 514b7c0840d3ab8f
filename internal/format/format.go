package format

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// DefaultSeparator joins the tokens of a multi-tier product. Tokens contain
// commas (currency grouping), so a comma cannot be used.
const DefaultSeparator = "; "

// Formatter renders products into their display columns.
type Formatter struct {
	Separator string
}

func New() *Formatter {
	return &Formatter{Separator: DefaultSeparator}
}

// Currency renders an amount as "$1,000,000", keeping cents only when present.
func Currency(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return "$" + group(d.Truncate(0).String())
	}
	return CurrencyCents(d)
}

// CurrencyCents always renders two decimals: "$1,500.00".
func CurrencyCents(d decimal.Decimal) string {
	s := d.StringFixed(2)
	whole, frac, _ := strings.Cut(s, ".")
	return "$" + group(whole) + "." + frac
}

// Percent renders a rate in percentage points as "1.00%".
func Percent(rate decimal.Decimal) string {
	return rate.StringFixed(2) + "%"
}

func group(whole string) string {
	neg := strings.HasPrefix(whole, "-")
	whole = strings.TrimPrefix(whole, "-")
	if len(whole) <= 3 {
		if neg {
			return "-" + whole
		}
		return whole
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Fee renders the fee part of a token.
func Fee(t model.Tier) string {
	switch t.FeeKind {
	case model.FeeKindPercentage:
		return Percent(t.Rate)
	case model.FeeKindPercentageRange:
		return Percent(t.RateLow) + "-" + Percent(t.RateHigh)
	case model.FeeKindFlatFee:
		return CurrencyCents(t.Amount)
	default:
		return "N/A"
	}
}

// Threshold renders the threshold part of a token: "$0+" or "$0-$500,000".
func Threshold(t model.Tier) string {
	if t.UpperBound.Valid && t.UpperBound.Decimal.GreaterThan(t.LowerBound) {
		return Currency(t.LowerBound) + "-" + Currency(t.UpperBound.Decimal)
	}
	return Currency(t.LowerBound) + "+"
}

// Token renders one member tier as "(<threshold>) (<fee>)".
func Token(t model.Tier) string {
	return "(" + Threshold(t) + ") (" + Fee(t) + ")"
}

// Render fills each product's tokens and lays the products out in column
// order. The input products are not modified. Columns past the last product
// stay empty.
func (f *Formatter) Render(products []model.Product) ([]model.Product, [model.MaxProducts]string) {
	var columns [model.MaxProducts]string
	out := make([]model.Product, len(products))
	for i, p := range products {
		tokens := make([]string, len(p.Tiers))
		for j, t := range p.Tiers {
			tokens[j] = Token(t)
		}
		out[i] = model.Product{Tiers: p.Tiers, Tokens: tokens}
		if i < model.MaxProducts {
			columns[i] = strings.Join(tokens, f.Separator)
		}
	}
	return out, columns
}
