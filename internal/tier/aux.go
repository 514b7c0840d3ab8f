package tier

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	flatRangeRe     = regexp.MustCompile(`(\$\d[\d,]*(\.\d+)?|\d[\d,]*(\.\d+)?%|\d[\d,]*(\.\d+)?) ?- ?(\$\d[\d,]*(\.\d+)?|\d[\d,]*(\.\d+)?%|\d[\d,]*(\.\d+)?)`)
	flatMoneyRe     = regexp.MustCompile(`(?i)[$£€¥]|\d+,\d+|\d+\.\d+%|chf|\d+ ?%`)
	flatKeywordsRe  = regexp.MustCompile(`(?i)negotiable|fee|amount|rate|percentage|management`)
	noInformationRe = regexp.MustCompile(`(?i)no fee information|response not available|n/a`)
)

// ParseFlatFeeFlag interprets the "Flat Fee" column. Explicit answers win;
// ranges are never flat; any remaining amount or fee wording counts as a flat fee.
func ParseFlatFeeFlag(s string) bool {
	s = Clean(s)
	lower := strings.ToLower(s)
	if IsPlaceholder(s) || noInformationRe.MatchString(s) {
		return false
	}
	switch lower {
	case "no", "none", "no fee", "no fee.":
		return false
	case "yes":
		return true
	}
	mentionsFlat := strings.Contains(lower, "flat") || strings.Contains(lower, "fixed")
	if mentionsFlat && strings.Contains(lower, "no") {
		return false
	}
	if flatRangeRe.MatchString(s) {
		return false
	}
	if mentionsFlat || flatMoneyRe.MatchString(s) || flatKeywordsRe.MatchString(s) {
		return true
	}
	return false
}

// MinimumInvestment is the parsed "Minimum investment" column.
type MinimumInvestment struct {
	Amount   decimal.Decimal
	Present  bool
	Currency string
}

var foreignCurrencyRes = []struct {
	re       *regexp.Regexp
	currency string
}{
	{regexp.MustCompile(`CHF\s*` + numPattern), "CHF"},
	{regexp.MustCompile(numPattern + `\s*CHF`), "CHF"},
	{regexp.MustCompile(`EUR\s*` + numPattern), "EUR"},
	{regexp.MustCompile(numPattern + `\s*EUR`), "EUR"},
	{regexp.MustCompile(`GBP\s*` + numPattern), "GBP"},
	{regexp.MustCompile(numPattern + `\s*GBP`), "GBP"},
	{regexp.MustCompile(`£\s*` + numPattern), "GBP"},
	{regexp.MustCompile(`€\s*` + numPattern), "EUR"},
}

var (
	minDollarRe  = regexp.MustCompile(`\$\s*` + numPattern)
	minUpToRe    = regexp.MustCompile(`(?i)up to \$` + numPattern)
	minMillionRe = regexp.MustCompile(`(?i)` + numPattern + `\s*million`)
	minBillionRe = regexp.MustCompile(`(?i)` + numPattern + `\s*billion`)
	minNumericRe = regexp.MustCompile(numPattern)
)

// placeholderMinimum stands in for a minimum that exists but has no stated amount.
var placeholderMinimum = decimal.NewFromInt(1)

// ParseMinimumInvestment interprets the "Minimum investment (Amount/No)" column.
// Ranges resolve to their lower bound.
func ParseMinimumInvestment(s string) MinimumInvestment {
	out := MinimumInvestment{Currency: "USD"}
	s = Clean(s)
	lower := strings.ToLower(s)
	if s == "" || s == "-1" {
		return out
	}
	switch lower {
	case "no", "none", "n/a", "na", "not applicable":
		return out
	case "yes":
		out.Amount, out.Present = placeholderMinimum, true
		return out
	}
	if strings.Contains(lower, "negotiable") || strings.Contains(lower, "varies") || strings.Contains(lower, "depend") {
		out.Amount, out.Present = placeholderMinimum, true
		return out
	}

	for _, fc := range foreignCurrencyRes {
		if m := fc.re.FindStringSubmatch(s); m != nil {
			if amt, ok := parseAmount(m[1], ""); ok {
				return MinimumInvestment{Amount: amt, Present: true, Currency: fc.currency}
			}
		}
	}
	// "$1 million" must not stop at "$1"
	if m := minMillionRe.FindStringSubmatch(s); m != nil {
		if amt, ok := parseAmount(m[1], "million"); ok {
			out.Amount, out.Present = amt, true
			return out
		}
	}
	if m := minBillionRe.FindStringSubmatch(s); m != nil {
		if amt, ok := parseAmount(m[1], "billion"); ok {
			out.Amount, out.Present = amt, true
			return out
		}
	}
	for _, re := range []*regexp.Regexp{minUpToRe, minDollarRe, minNumericRe} {
		if m := re.FindStringSubmatch(s); m != nil {
			if amt, ok := parseAmount(m[1], ""); ok {
				out.Amount, out.Present = amt, true
				return out
			}
		}
	}
	out.Amount, out.Present = placeholderMinimum, true
	return out
}

// ParseNegotiable interprets the "Negotiable (Yes/No)" column.
func ParseNegotiable(s string) bool {
	switch strings.ToLower(Clean(s)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}
