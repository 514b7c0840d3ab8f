package structure

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// nonDecreasing reports whether lower bounds never step down in slot order.
func nonDecreasing(tiers []model.Tier) bool {
	for i := 1; i < len(tiers); i++ {
		if tiers[i].LowerBound.LessThan(tiers[i-1].LowerBound) {
			return false
		}
	}
	return true
}

func strictlyIncreasing(tiers []model.Tier) bool {
	for i := 1; i < len(tiers); i++ {
		if !tiers[i].LowerBound.GreaterThan(tiers[i-1].LowerBound) {
			return false
		}
	}
	return true
}

func hasRange(tiers []model.Tier) bool {
	for _, t := range tiers {
		if t.IsRange() {
			return true
		}
	}
	return false
}

// atBreakpoint reports a tier that does not advance the threshold: the first
// tier, or one sharing the previous tier's lower bound.
func atBreakpoint(tiers []model.Tier, i int) bool {
	return i == 0 || tiers[i].LowerBound.Equal(tiers[i-1].LowerBound)
}

// runs partitions tiers into maximal contiguous non-decreasing runs. Every
// downward step in lower bound starts a new run.
func runs(tiers []model.Tier) [][]model.Tier {
	if len(tiers) == 0 {
		return nil
	}
	var out [][]model.Tier
	start := 0
	for i := 1; i < len(tiers); i++ {
		if tiers[i].LowerBound.LessThan(tiers[i-1].LowerBound) {
			out = append(out, tiers[start:i])
			start = i
		}
	}
	return append(out, tiers[start:])
}

type thresholdSet map[string]struct{}

func thresholdsOf(tiers []model.Tier) thresholdSet {
	set := make(thresholdSet, len(tiers))
	for _, t := range tiers {
		set[t.LowerBound.String()] = struct{}{}
	}
	return set
}

func (s thresholdSet) overlaps(other thresholdSet) bool {
	for k := range s {
		if _, ok := other[k]; ok {
			return true
		}
	}
	return false
}

// anyOverlap reports whether two runs share a lower bound value.
func anyOverlap(rs [][]model.Tier) bool {
	sets := make([]thresholdSet, len(rs))
	for i, r := range rs {
		sets[i] = thresholdsOf(r)
	}
	for i := 0; i < len(sets); i++ {
		for j := i + 1; j < len(sets); j++ {
			if sets[i].overlaps(sets[j]) {
				return true
			}
		}
	}
	return false
}

// feesNonIncreasing reports whether rates never rise once the tiers are
// ordered by lower bound. Only single percentages are comparable.
func feesNonIncreasing(tiers []model.Tier) bool {
	sorted := make([]model.Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LowerBound.LessThan(sorted[j].LowerBound)
	})
	prev := decimal.Decimal{}
	for i, t := range sorted {
		if t.FeeKind != model.FeeKindPercentage {
			return false
		}
		if i > 0 && t.Rate.GreaterThan(prev) {
			return false
		}
		prev = t.Rate
	}
	return true
}

func singleton(t model.Tier) []model.Tier {
	return []model.Tier{t}
}
