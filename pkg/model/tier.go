package model

import (
	"github.com/shopspring/decimal"
)

// MaxSlots is the number of threshold/fee slots a filing can carry.
const MaxSlots = 8

// FeeKind describes how a tier's fee is expressed.
type FeeKind string

const (
	FeeKindEmpty           FeeKind = "empty"
	FeeKindPercentage      FeeKind = "percentage"
	FeeKindPercentageRange FeeKind = "percentage_range"
	FeeKindFlatFee         FeeKind = "flat_fee"
	FeeKindNotAvailable    FeeKind = "not_available" // threshold present, fee cell reads N/A
)

// SplitPart marks the two Percentage siblings produced from a split fee range.
type SplitPart string

const (
	SplitNone SplitPart = ""
	SplitLow  SplitPart = "low"
	SplitHigh SplitPart = "high"
)

// Tier is one advisory fee breakpoint.
//
// Rates are percentage points (1.00 means 1%). UpperBound is carried for
// display only; ordering decisions always use LowerBound.
type Tier struct {
	LowerBound      decimal.Decimal     `json:"lower_bound"`
	UpperBound      decimal.NullDecimal `json:"upper_bound"`
	FeeKind         FeeKind             `json:"fee_kind"`
	Rate            decimal.Decimal     `json:"rate"`
	RateLow         decimal.Decimal     `json:"rate_low"`
	RateHigh        decimal.Decimal     `json:"rate_high"`
	Amount          decimal.Decimal     `json:"amount"`
	SourceSlotIndex int                 `json:"source_slot_index"`
	Split           SplitPart           `json:"split,omitempty"`
}

func (t Tier) IsEmpty() bool {
	return t.FeeKind == FeeKindEmpty || t.FeeKind == ""
}

func (t Tier) IsRange() bool {
	return t.FeeKind == FeeKindPercentageRange
}

// Inverted reports a fee range whose low rate exceeds its high rate.
func (t Tier) Inverted() bool {
	return t.IsRange() && t.RateLow.GreaterThan(t.RateHigh)
}

// Splittable reports whether the tier is a well-formed fee range.
func (t Tier) Splittable() bool {
	return t.IsRange() && !t.Inverted()
}

// SplitRange returns the low and high Percentage siblings of a fee range.
// Both keep the lower bound, display upper bound and slot index of t.
func (t Tier) SplitRange() (Tier, Tier) {
	low, high := t, t
	low.FeeKind, high.FeeKind = FeeKindPercentage, FeeKindPercentage
	low.Rate, high.Rate = t.RateLow, t.RateHigh
	low.RateLow, low.RateHigh = decimal.Zero, decimal.Zero
	high.RateLow, high.RateHigh = decimal.Zero, decimal.Zero
	low.Split, high.Split = SplitLow, SplitHigh
	return low, high
}

// EffectiveRate is the single rate used when comparing fees across tiers.
// Ranges use their high bound; kinds without a rate report ok=false.
func (t Tier) EffectiveRate() (decimal.Decimal, bool) {
	switch t.FeeKind {
	case FeeKindPercentage:
		return t.Rate, true
	case FeeKindPercentageRange:
		return t.RateHigh, true
	default:
		return decimal.Zero, false
	}
}
