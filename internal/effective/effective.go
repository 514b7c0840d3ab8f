package effective

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/adviser-fees/internal/format"
	"github.com/Checker-Finance/adviser-fees/internal/tier"
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

var (
	ErrEmptySchedule     = errors.New("effective: product has no tiers")
	ErrNonPositiveValue  = errors.New("effective: portfolio value must be positive")
	ErrUnpricedTier      = errors.New("effective: tier has no single rate")
	ErrMixedFlatSchedule = errors.New("effective: flat fee mixed with percentage tiers")
)

var hundred = decimal.NewFromInt(100)

// Bracket is the slice of a portfolio charged at one tier's rate.
type Bracket struct {
	Lower  decimal.Decimal `json:"lower"`
	Amount decimal.Decimal `json:"amount"`
	Rate   decimal.Decimal `json:"rate"`
	Fee    decimal.Decimal `json:"fee"`
}

// Result is the blended fee of one product at one portfolio value.
type Result struct {
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
	AnnualFee      decimal.Decimal `json:"annual_fee"`
	Rate           decimal.Decimal `json:"rate"` // percentage points
	Brackets       []Bracket       `json:"brackets,omitempty"`
}

// Rate computes the marginal blended rate of a single-schedule product.
// Tiers are ordered by lower bound; each charges its rate on the part of
// the portfolio between its lower bound and the next tier's, and the last
// tier takes the remainder. The first tier always starts at $0, and an
// unsplit fee range charges its high bound. A product made of one flat-fee
// tier charges that amount.
func Rate(p model.Product, portfolioValue decimal.Decimal) (Result, error) {
	if len(p.Tiers) == 0 {
		return Result{}, ErrEmptySchedule
	}
	if !portfolioValue.IsPositive() {
		return Result{}, ErrNonPositiveValue
	}

	tiers := append([]model.Tier(nil), p.Tiers...)
	sort.SliceStable(tiers, func(i, j int) bool {
		return tiers[i].LowerBound.LessThan(tiers[j].LowerBound)
	})

	res := Result{PortfolioValue: portfolioValue}
	if tiers[0].FeeKind == model.FeeKindFlatFee {
		if len(tiers) > 1 {
			return Result{}, ErrMixedFlatSchedule
		}
		res.AnnualFee = tiers[0].Amount
		res.Rate = res.AnnualFee.Div(portfolioValue).Mul(hundred)
		return res, nil
	}

	remaining := portfolioValue
	for i, t := range tiers {
		rate, ok := t.EffectiveRate()
		if !ok {
			if t.FeeKind == model.FeeKindFlatFee {
				return Result{}, ErrMixedFlatSchedule
			}
			return Result{}, fmt.Errorf("%w: slot %d (%s)", ErrUnpricedTier, t.SourceSlotIndex, t.FeeKind)
		}
		if !remaining.IsPositive() {
			break
		}

		amount := remaining
		if i < len(tiers)-1 {
			start := t.LowerBound
			if i == 0 {
				start = decimal.Zero
			}
			amount = decimal.Min(tiers[i+1].LowerBound.Sub(start), remaining)
		}
		if !amount.IsPositive() {
			continue
		}

		fee := amount.Mul(rate).Div(hundred)
		res.Brackets = append(res.Brackets, Bracket{Lower: t.LowerBound, Amount: amount, Rate: rate, Fee: fee})
		res.AnnualFee = res.AnnualFee.Add(fee)
		remaining = remaining.Sub(amount)
	}

	res.Rate = res.AnnualFee.Div(portfolioValue).Mul(hundred)
	return res, nil
}

// ParseProduct reads a rendered product column such as
// "($0+) (1.00%); ($1,000,000+) (0.75%)" back into a product.
func ParseProduct(column, separator string) (model.Product, error) {
	if separator == "" {
		separator = format.DefaultSeparator
	}
	n := tier.NewNormalizer(nil)

	var p model.Product
	for i, token := range strings.Split(column, separator) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		t, err := n.NormalizeSlot(i, model.RawSlot{Threshold: model.RawValue(token)}, false)
		if err != nil {
			return model.Product{}, fmt.Errorf("token %q: %w", token, err)
		}
		if t.IsEmpty() {
			continue
		}
		p.Tiers = append(p.Tiers, t)
		p.Tokens = append(p.Tokens, token)
	}
	if len(p.Tiers) == 0 {
		return model.Product{}, ErrEmptySchedule
	}
	return p, nil
}
