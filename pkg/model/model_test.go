package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected RawValue
	}{
		{"string", `"$1,000,000+"`, "$1,000,000+"},
		{"integer", `1000000`, "1000000"},
		{"float", `0.75`, "0.75"},
		{"null", `null`, ""},
		{"true", `true`, "Yes"},
		{"false", `false`, "No"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v RawValue
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestRawRecord_DecodesMixedSlots(t *testing.T) {
	body := `{
		"row_index": 3,
		"slots": [
			{"threshold": "$0+", "fee": "1.00%"},
			{"threshold": 1000000, "fee": 0.75}
		],
		"flat_fee": "No",
		"negotiable": true
	}`

	var raw RawRecord
	require.NoError(t, json.Unmarshal([]byte(body), &raw))
	require.Len(t, raw.Slots, 2)
	assert.Equal(t, "1000000", raw.Slots[1].Threshold.String())
	assert.Equal(t, "0.75", raw.Slots[1].Fee.String())
	assert.Equal(t, RawValue("Yes"), raw.Negotiable)
	assert.NoError(t, raw.Validate())
}

func TestRawRecord_Validate(t *testing.T) {
	raw := RawRecord{RowIndex: 0, Slots: make([]RawSlot, MaxSlots+1)}
	assert.Error(t, raw.Validate())

	raw = RawRecord{RowIndex: -1}
	assert.Error(t, raw.Validate())
}

func TestTier_SplitRange(t *testing.T) {
	tier := Tier{
		LowerBound:      decimal.Zero,
		FeeKind:         FeeKindPercentageRange,
		RateLow:         decimal.RequireFromString("0.32"),
		RateHigh:        decimal.RequireFromString("2.50"),
		SourceSlotIndex: 2,
	}
	require.True(t, tier.Splittable())

	low, high := tier.SplitRange()
	assert.Equal(t, FeeKindPercentage, low.FeeKind)
	assert.Equal(t, SplitLow, low.Split)
	assert.True(t, low.Rate.Equal(decimal.RequireFromString("0.32")))
	assert.Equal(t, SplitHigh, high.Split)
	assert.True(t, high.Rate.Equal(decimal.RequireFromString("2.50")))
	assert.Equal(t, 2, low.SourceSlotIndex)
	assert.Equal(t, 2, high.SourceSlotIndex)

	// the source tier is untouched
	assert.Equal(t, FeeKindPercentageRange, tier.FeeKind)
}

func TestTier_Inverted(t *testing.T) {
	tier := Tier{
		FeeKind:  FeeKindPercentageRange,
		RateLow:  decimal.RequireFromString("2.00"),
		RateHigh: decimal.RequireFromString("1.00"),
	}
	assert.True(t, tier.Inverted())
	assert.False(t, tier.Splittable())
}

func TestOutputRow_AddReason(t *testing.T) {
	var row OutputRow
	row.AddReason(ReasonOverflow)
	row.AddReason(ReasonOverflow)
	row.AddReason(ReasonSlotMismatch)

	assert.True(t, row.LowConfidence)
	assert.Equal(t, []ReasonCode{ReasonOverflow, ReasonSlotMismatch}, row.Reasons)
	assert.Equal(t, "overflow|slot_mismatch", row.ReasonString())
}

func TestNewRecordClassifiedEvent(t *testing.T) {
	row := OutputRow{
		Record: Record{SourceFile: "fees_2024_01.csv", RowIndex: 7},
		Phase:  PhaseSimple,
	}
	row.Products[0] = "($0+) (1.00%)"

	evt := NewRecordClassifiedEvent(row)
	assert.Equal(t, 1, evt.ProductCount)
	assert.Equal(t, []string{"($0+) (1.00%)"}, evt.Products)
	assert.Equal(t, 7, evt.RowIndex)
	assert.False(t, evt.Timestamp.IsZero())
}
