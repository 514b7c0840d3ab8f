package tier

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// MalformedTierError reports a slot that could not be resolved into a tier.
// It is non-fatal: the record is still emitted and flagged.
type MalformedTierError struct {
	Slot   int // 0-based slot position
	Input  string
	Reason string
}

func (e *MalformedTierError) Error() string {
	return fmt.Sprintf("malformed tier in slot %d (%q): %s", e.Slot+1, e.Input, e.Reason)
}

// Normalizer turns raw threshold/fee slots into typed tiers.
type Normalizer struct {
	logger *zap.Logger
}

func NewNormalizer(logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{logger: logger}
}

// Normalize builds a Record from a raw record. Empty slots are dropped but
// the remaining tiers keep their original slot index. The returned error,
// when non-nil, joins one *MalformedTierError per unresolvable slot; the
// Record is valid either way.
func (n *Normalizer) Normalize(raw model.RawRecord) (model.Record, error) {
	minimum := ParseMinimumInvestment(raw.MinimumInvestment.String())
	rec := model.Record{
		SourceFile:                raw.SourceFile,
		RowIndex:                  raw.RowIndex,
		FlatFee:                   ParseFlatFeeFlag(raw.FlatFee.String()),
		MinimumInvestment:         minimum.Amount,
		MinimumInvestmentCurrency: minimum.Currency,
		HasMinimumInvestment:      minimum.Present,
		Negotiable:                ParseNegotiable(raw.Negotiable.String()),
		Columns:                   raw.Columns,
	}

	var errs []error
	for i, slot := range raw.Slots {
		if i >= model.MaxSlots {
			break
		}
		t, err := n.NormalizeSlot(i, slot, rec.FlatFee)
		if err != nil {
			n.logger.Debug("tier.malformed_slot",
				zap.String("source_file", raw.SourceFile),
				zap.Int("row_index", raw.RowIndex),
				zap.Int("slot", i),
				zap.Error(err))
			errs = append(errs, err)
		}
		if t.IsEmpty() {
			continue
		}
		rec.Tiers = append(rec.Tiers, t)
	}
	return rec, errors.Join(errs...)
}

// NormalizeSlot resolves one slot. The returned tier may be Empty.
func (n *Normalizer) NormalizeSlot(index int, slot model.RawSlot, flatFeeRecord bool) (model.Tier, error) {
	thresholdText := slot.Threshold.String()
	feeText := slot.Fee.String()
	t := model.Tier{SourceSlotIndex: index, FeeKind: model.FeeKindEmpty}

	if IsPlaceholder(Clean(thresholdText)) && IsPlaceholder(Clean(feeText)) {
		return t, nil
	}

	threshold, hasThreshold := ParseThreshold(thresholdText)

	var fee Fee
	var hasFee bool
	if !IsPlaceholder(Clean(feeText)) {
		fee, hasFee = ParseFee(feeText, true)
	} else {
		fee, hasFee = ParseFee(thresholdText, false)
	}

	switch {
	case hasThreshold && hasFee:
		t.LowerBound, t.UpperBound = threshold.Lower, threshold.Upper
		fee.apply(&t)
		return t, nil

	case hasThreshold:
		t.LowerBound, t.UpperBound = threshold.Lower, threshold.Upper
		t.FeeKind = model.FeeKindNotAvailable
		return t, nil

	case hasFee:
		// a fee with no threshold applies from $0
		t.LowerBound = decimal.Zero
		fee.apply(&t)
		if flatFeeRecord && fee.Kind == model.FeeKindFlatFee {
			return t, nil
		}
		return t, &MalformedTierError{Slot: index, Input: joinSlot(thresholdText, feeText), Reason: "fee has no resolvable threshold"}

	default:
		return t, &MalformedTierError{Slot: index, Input: joinSlot(thresholdText, feeText), Reason: "unrecognised slot text"}
	}
}

func joinSlot(threshold, fee string) string {
	if fee == "" {
		return threshold
	}
	if threshold == "" {
		return fee
	}
	return threshold + " | " + fee
}
