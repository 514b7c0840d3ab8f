package validate

import (
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Validator re-checks a classification against the tiers it came from.
// It never fails; problems come back as reason codes.
type Validator struct {
	logger *zap.Logger
}

func New(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{logger: logger}
}

type coverage struct {
	whole, low, high int
}

func (c coverage) exactlyOnce() bool {
	return (c.whole == 1 && c.low == 0 && c.high == 0) ||
		(c.whole == 0 && c.low == 1 && c.high == 1)
}

// Check returns the reason codes that apply to products classified from
// tiers. A split pair counts as one covering unit of its slot.
func (v *Validator) Check(tiers []model.Tier, products []model.Product, overflow bool) []model.ReasonCode {
	var reasons []model.ReasonCode

	if overflow || len(products) > model.MaxProducts {
		reasons = append(reasons, model.ReasonOverflow)
	}

	if !v.covers(tiers, products) {
		reasons = append(reasons, model.ReasonSlotMismatch)
	}

	for _, p := range products {
		if hasInverted(p) {
			reasons = append(reasons, model.ReasonInvertedRange)
			break
		}
	}

	if len(reasons) > 0 {
		v.logger.Debug("validate.low_confidence",
			zap.Int("tiers", len(tiers)),
			zap.Int("products", len(products)),
			zap.Any("reasons", reasons))
	}
	return reasons
}

func (v *Validator) covers(tiers []model.Tier, products []model.Product) bool {
	seen := make(map[int]*coverage, len(tiers))
	last := -1
	for _, p := range products {
		if len(p.Tiers) == 0 {
			return false
		}
		for _, t := range p.Tiers {
			if t.SourceSlotIndex < last {
				return false
			}
			last = t.SourceSlotIndex
			c, ok := seen[t.SourceSlotIndex]
			if !ok {
				c = &coverage{}
				seen[t.SourceSlotIndex] = c
			}
			switch t.Split {
			case model.SplitLow:
				c.low++
			case model.SplitHigh:
				c.high++
			default:
				c.whole++
			}
		}
	}

	expected := make(map[int]bool, len(tiers))
	for _, t := range tiers {
		if expected[t.SourceSlotIndex] {
			// two input tiers claiming one slot
			return false
		}
		expected[t.SourceSlotIndex] = true
		c, ok := seen[t.SourceSlotIndex]
		if !ok || !c.exactlyOnce() {
			return false
		}
	}
	return len(seen) == len(expected)
}

func hasInverted(p model.Product) bool {
	for _, t := range p.Tiers {
		if t.Inverted() {
			return true
		}
	}
	return false
}
