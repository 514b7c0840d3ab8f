package structure

import (
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// Strategy is one classification phase: Claims decides whether the phase
// owns the record, Apply partitions the tiers into product groups. Check is
// optional and reports groups the phase had to leave unresolved.
type Strategy struct {
	Phase  model.Phase
	Claims func(tiers []model.Tier) bool
	Apply  func(tiers []model.Tier) [][]model.Tier
	Check  func(groups [][]model.Tier) error
}

// DefaultStrategies returns the phases in evaluation order.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Phase: model.PhaseSimple, Claims: claimsSimple, Apply: applySimple},
		{Phase: model.PhaseFeeRange, Claims: claimsFeeRange, Apply: applyFeeRange},
		{Phase: model.PhaseThresholdReset, Claims: claimsThresholdReset, Apply: applyThresholdReset, Check: checkThresholdReset},
		{Phase: model.PhaseMultiSchedule, Claims: claimsMultiSchedule, Apply: applyMultiSchedule},
	}
}

// Phase 1: monotonic thresholds, no fee ranges.

func claimsSimple(tiers []model.Tier) bool {
	return nonDecreasing(tiers) && !hasRange(tiers)
}

func applySimple(tiers []model.Tier) [][]model.Tier {
	return [][]model.Tier{tiers}
}

// Phase 2: monotonic thresholds with a fee range sitting at a single breakpoint.

func claimsFeeRange(tiers []model.Tier) bool {
	if !nonDecreasing(tiers) {
		return false
	}
	for i, t := range tiers {
		if t.IsRange() && atBreakpoint(tiers, i) {
			return true
		}
	}
	return false
}

// applyFeeRange splits every breakpoint range into a low and a high product.
// The tiers between splits form segments: a segment without ranges is one
// product, otherwise each of its tiers stands alone. Inverted ranges are not
// split and pass through as their own product.
func applyFeeRange(tiers []model.Tier) [][]model.Tier {
	var groups [][]model.Tier
	var segment []model.Tier

	flush := func() {
		if len(segment) == 0 {
			return
		}
		if hasRange(segment) {
			for _, t := range segment {
				groups = append(groups, singleton(t))
			}
		} else {
			groups = append(groups, segment)
		}
		segment = nil
	}

	for i, t := range tiers {
		if !(t.IsRange() && atBreakpoint(tiers, i)) {
			segment = append(segment, t)
			continue
		}
		flush()
		if t.Inverted() {
			groups = append(groups, singleton(t))
			continue
		}
		low, high := t.SplitRange()
		groups = append(groups, singleton(low), singleton(high))
	}
	flush()
	return groups
}

// Phase 3: a threshold reset where the resulting runs share no lower bound.

func claimsThresholdReset(tiers []model.Tier) bool {
	return !nonDecreasing(tiers) && !anyOverlap(runs(tiers))
}

func applyThresholdReset(tiers []model.Tier) [][]model.Tier {
	var groups [][]model.Tier
	for _, run := range runs(tiers) {
		if len(run) == 1 && run[0].Splittable() {
			low, high := run[0].SplitRange()
			groups = append(groups, singleton(low), singleton(high))
			continue
		}
		groups = append(groups, run)
	}
	return groups
}

// checkThresholdReset flags a fee range kept whole inside a multi-tier run.
// Only single-tier runs are split, so such a range stays unsplit.
func checkThresholdReset(groups [][]model.Tier) error {
	var slots []int
	for _, g := range groups {
		if len(g) < 2 {
			continue
		}
		for _, t := range g {
			if t.IsRange() {
				slots = append(slots, t.SourceSlotIndex)
			}
		}
	}
	if len(slots) == 0 {
		return nil
	}
	return &StructureAmbiguousError{Slots: slots, Reason: "fee range inside a reset run"}
}

// Phase 4: runs repeat lower bounds, so the filing lists several schedules.

func claimsMultiSchedule(tiers []model.Tier) bool {
	return !nonDecreasing(tiers) && anyOverlap(runs(tiers))
}

// applyMultiSchedule folds adjacent runs left to right. A run joins the
// current group only when the two read unambiguously as one schedule that
// was interrupted by a data-entry reset; anything else stays separate.
func applyMultiSchedule(tiers []model.Tier) [][]model.Tier {
	rs := runs(tiers)
	groups := [][]model.Tier{append([]model.Tier(nil), rs[0]...)}
	for _, run := range rs[1:] {
		current := groups[len(groups)-1]
		if sameSchedule(current, run) {
			groups[len(groups)-1] = append(current, run...)
			continue
		}
		groups = append(groups, append([]model.Tier(nil), run...))
	}
	return groups
}

// sameSchedule is the merge test for Phase 4. Overlapping thresholds, a
// restart at $0, repeated breakpoints, or fees that rise with the threshold
// all mean independent schedules.
func sameSchedule(current, next []model.Tier) bool {
	if thresholdsOf(current).overlaps(thresholdsOf(next)) {
		return false
	}
	if !next[0].LowerBound.IsPositive() {
		return false
	}
	combined := make([]model.Tier, 0, len(current)+len(next))
	combined = append(combined, current...)
	combined = append(combined, next...)
	if len(thresholdsOf(combined)) != len(combined) {
		return false
	}
	for _, r := range runs(current) {
		if !strictlyIncreasing(r) {
			return false
		}
	}
	if !strictlyIncreasing(next) {
		return false
	}
	return feesNonIncreasing(combined)
}
