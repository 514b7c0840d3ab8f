package structure

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// StructureAmbiguousError is returned when no phase claims a record, or when
// the claiming phase leaves a fee range it cannot place. The accompanying
// Result still holds the best-effort partition.
type StructureAmbiguousError struct {
	Slots  []int
	Reason string
}

func (e *StructureAmbiguousError) Error() string {
	return fmt.Sprintf("ambiguous product structure over slots %v: %s", e.Slots, e.Reason)
}

// Result is the classifier output for one record.
type Result struct {
	Products []model.Product
	Phase    model.Phase
	Overflow bool
}

// Classifier partitions a record's tiers into products by running its
// strategies in order until one claims the record.
type Classifier struct {
	logger     *zap.Logger
	strategies []Strategy
}

func NewClassifier(logger *zap.Logger) *Classifier {
	return NewClassifierWithStrategies(logger, DefaultStrategies())
}

func NewClassifierWithStrategies(logger *zap.Logger, strategies []Strategy) *Classifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Classifier{logger: logger, strategies: strategies}
}

// Classify partitions tiers (non-Empty, slot order) into at most
// model.MaxProducts products. The input slice is never modified or re-sorted.
func (c *Classifier) Classify(tiers []model.Tier) (Result, error) {
	if len(tiers) == 0 {
		return Result{Phase: model.PhaseNone}, nil
	}

	for _, s := range c.strategies {
		if !s.Claims(tiers) {
			continue
		}
		groups := s.Apply(tiers)
		c.logger.Debug("structure.phase_claimed",
			zap.String("phase", string(s.Phase)),
			zap.Int("tiers", len(tiers)),
			zap.Int("groups", len(groups)))
		products, overflow := capGroups(groups)
		res := Result{Products: products, Phase: s.Phase, Overflow: overflow}
		if s.Check != nil {
			if err := s.Check(groups); err != nil {
				return res, err
			}
		}
		return res, nil
	}

	slots := make([]int, len(tiers))
	for i, t := range tiers {
		slots[i] = t.SourceSlotIndex
	}
	products, overflow := capGroups([][]model.Tier{tiers})
	return Result{Products: products, Phase: model.PhaseFallback, Overflow: overflow},
		&StructureAmbiguousError{Slots: slots, Reason: "fee range spans distinct breakpoints"}
}

// capGroups copies groups into products, folding everything past the last
// column into the final product.
func capGroups(groups [][]model.Tier) ([]model.Product, bool) {
	overflow := len(groups) > model.MaxProducts
	n := len(groups)
	if overflow {
		n = model.MaxProducts
	}
	products := make([]model.Product, n)
	for i := 0; i < n; i++ {
		products[i].Tiers = append([]model.Tier(nil), groups[i]...)
	}
	if overflow {
		last := &products[model.MaxProducts-1]
		for _, g := range groups[model.MaxProducts:] {
			last.Tiers = append(last.Tiers, g...)
		}
	}
	return products, overflow
}

// Flatten rebuilds the slot-ordered tier list behind a product list. Split
// siblings are folded back into the fee range they came from.
func Flatten(products []model.Product) []model.Tier {
	var all []model.Tier
	for _, p := range products {
		all = append(all, p.Tiers...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].SourceSlotIndex < all[j].SourceSlotIndex
	})

	out := make([]model.Tier, 0, len(all))
	for i := 0; i < len(all); i++ {
		t := all[i]
		if t.Split == model.SplitLow && i+1 < len(all) &&
			all[i+1].Split == model.SplitHigh && all[i+1].SourceSlotIndex == t.SourceSlotIndex {
			merged := t
			merged.FeeKind = model.FeeKindPercentageRange
			merged.RateLow, merged.RateHigh = t.Rate, all[i+1].Rate
			merged.Rate = decimal.Decimal{}
			merged.Split = model.SplitNone
			out = append(out, merged)
			i++
			continue
		}
		out = append(out, t)
	}
	return out
}
