package tier

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldDashes maps the dash variants found in filings onto ASCII '-'.
var foldDashes = runes.Map(func(r rune) rune {
	switch r {
	case '‐', '‑', '‒', '–', '—', '―', '−', '﹘', '﹣', '－':
		return '-'
	}
	return r
})

var cleaner = transform.Chain(norm.NFKC, foldDashes)

var spaceRun = regexp.MustCompile(`\s+`)

// Clean normalizes a raw cell: NFKC, ASCII dashes, no quotes, single spaces.
func Clean(s string) string {
	out, _, err := transform.String(cleaner, s)
	if err != nil {
		out = s
	}
	out = strings.NewReplacer(`"`, "", "'", "", "“", "", "”", "").Replace(out)
	return strings.TrimSpace(spaceRun.ReplaceAllString(out, " "))
}

// IsPlaceholder reports cells that carry no information.
func IsPlaceholder(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "n/a", "n/ a", "na", "-1", "nan", "none", "null", "-":
		return true
	}
	return false
}

const (
	numPattern    = `(\d[\d,]*(?:\.\d+)?|\.\d+)`
	suffixPattern = `(?:\s*(thousand|million|billion|mil|mm|k|m|b)\b)?`
	amountPattern = numPattern + suffixPattern
)

var (
	thousand = decimal.New(1, 3)
	million  = decimal.New(1, 6)
	billion  = decimal.New(1, 9)
)

// parseAmount converts a matched number and optional magnitude suffix.
func parseAmount(num, suffix string) (decimal.Decimal, bool) {
	num = strings.ReplaceAll(num, ",", "")
	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero, false
	}
	switch strings.ToLower(suffix) {
	case "k", "thousand":
		d = d.Mul(thousand)
	case "m", "mm", "mil", "million":
		d = d.Mul(million)
	case "b", "billion":
		d = d.Mul(billion)
	}
	return d, true
}

// ParseAmount parses a currency amount such as "$1,500", "250K" or "1.5 million".
func ParseAmount(s string) (decimal.Decimal, bool) {
	m := anyAmountRe.FindStringSubmatch(Clean(s))
	if m == nil {
		return decimal.Zero, false
	}
	return parseAmount(m[1], m[2])
}

var anyAmountRe = regexp.MustCompile(`(?i)` + amountPattern)
