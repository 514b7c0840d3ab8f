package tier

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestParseThreshold(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		lower     string
		upper     string // empty means no display upper bound
		wantFound bool
	}{
		{"plus", "$1,000,000+", "1000000", "", true},
		{"plus with suffix", "$500K+", "500000", "", true},
		{"range", "$0 - $1,000,000", "0", "1000000", true},
		{"range with en dash", "$1M – $5M", "1000000", "5000000", true},
		{"range with to", "$250,000 to $500,000", "250000", "500000", true},
		{"under", "Under $500,000", "0", "500000", true},
		{"under lowercase suffix", "under $0.5m", "0", "500000", true},
		{"less than symbol", "< $250K", "0", "250000", true},
		{"single dollar", "$2,000,000", "2000000", "", true},
		{"bare number", "1000000", "1000000", "", true},
		{"billion suffix", "$1.5B+", "1500000000", "", true},
		{"combined cell", "$0 - $1,000,000 (1.00%)", "0", "1000000", true},
		{"combined plus cell", "$1,000,000+ (0.75%)", "1000000", "", true},
		{"over phrase", "Over $10 million", "10000000", "", true},
		{"placeholder", "N/A", "", "", false},
		{"blank", "   ", "", "", false},
		{"fee only", "(1.00%)", "", "", false},
		{"prose", "see schedule", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseThreshold(tt.input)
			require.Equal(t, tt.wantFound, ok)
			if !ok {
				return
			}
			assert.True(t, got.Lower.Equal(dec(tt.lower)), "lower: got %s", got.Lower)
			if tt.upper == "" {
				assert.False(t, got.Upper.Valid)
			} else {
				require.True(t, got.Upper.Valid)
				assert.True(t, got.Upper.Decimal.Equal(dec(tt.upper)), "upper: got %s", got.Upper.Decimal)
			}
		})
	}
}

func TestParseFee(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		standalone bool
		kind       model.FeeKind
		rate       string
		low        string
		high       string
		amount     string
		wantFound  bool
	}{
		{name: "single percent", input: "1.00%", standalone: true, kind: model.FeeKindPercentage, rate: "1.00", wantFound: true},
		{name: "range in parens", input: "(0.32% - 2.50%)", standalone: true, kind: model.FeeKindPercentageRange, low: "0.32", high: "2.50", wantFound: true},
		{name: "range without parens", input: "0.32%-2.50%", standalone: true, kind: model.FeeKindPercentageRange, low: "0.32", high: "2.50", wantFound: true},
		{name: "range with em dash", input: "1% — 2%", standalone: true, kind: model.FeeKindPercentageRange, low: "1", high: "2", wantFound: true},
		{name: "range with to", input: "0.5 to 1.25%", standalone: true, kind: model.FeeKindPercentageRange, low: "0.5", high: "1.25", wantFound: true},
		{name: "degenerate range collapses", input: "1% - 1%", standalone: true, kind: model.FeeKindPercentage, rate: "1", wantFound: true},
		{name: "flat fee", input: "$1,500", standalone: true, kind: model.FeeKindFlatFee, amount: "1500", wantFound: true},
		{name: "bare number is percentage points", input: "0.75", standalone: true, kind: model.FeeKindPercentage, rate: "0.75", wantFound: true},
		{name: "combined cell percent", input: "$0 - $1,000,000 (1.00%)", standalone: false, kind: model.FeeKindPercentage, rate: "1.00", wantFound: true},
		{name: "combined cell ignores dollars", input: "$1,000,000+", standalone: false, wantFound: false},
		{name: "combined cell n/a", input: "$0 - $150,000 (N/A)", standalone: false, kind: model.FeeKindNotAvailable, wantFound: true},
		{name: "placeholder", input: "-1", standalone: true, wantFound: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFee(tt.input, tt.standalone)
			require.Equal(t, tt.wantFound, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.kind, got.Kind)
			if tt.rate != "" {
				assert.True(t, got.Rate.Equal(dec(tt.rate)), "rate: got %s", got.Rate)
			}
			if tt.low != "" {
				assert.True(t, got.Low.Equal(dec(tt.low)), "low: got %s", got.Low)
				assert.True(t, got.High.Equal(dec(tt.high)), "high: got %s", got.High)
			}
			if tt.amount != "" {
				assert.True(t, got.Amount.Equal(dec(tt.amount)), "amount: got %s", got.Amount)
			}
		})
	}
}

func TestNormalize_DropsEmptySlotsKeepingIndex(t *testing.T) {
	n := NewNormalizer(zap.NewNop())
	rec, err := n.Normalize(model.RawRecord{
		RowIndex: 4,
		Slots: []model.RawSlot{
			{Threshold: "$0+", Fee: "1.00%"},
			{Threshold: "", Fee: ""},
			{Threshold: "N/A", Fee: "-1"},
			{Threshold: "$1,000,000+", Fee: "0.75%"},
		},
	})
	require.NoError(t, err)
	require.Len(t, rec.Tiers, 2)
	assert.Equal(t, 0, rec.Tiers[0].SourceSlotIndex)
	assert.Equal(t, 3, rec.Tiers[1].SourceSlotIndex)
	assert.True(t, rec.Tiers[1].LowerBound.Equal(dec("1000000")))
	assert.Equal(t, 4, rec.RowIndex)
}

func TestNormalize_UnderPhraseKeepsDisplayUpper(t *testing.T) {
	n := NewNormalizer(nil)
	rec, err := n.Normalize(model.RawRecord{
		Slots: []model.RawSlot{{Threshold: "Under $500,000", Fee: "1.25%"}},
	})
	require.NoError(t, err)
	require.Len(t, rec.Tiers, 1)
	tier := rec.Tiers[0]
	assert.True(t, tier.LowerBound.IsZero())
	require.True(t, tier.UpperBound.Valid)
	assert.True(t, tier.UpperBound.Decimal.Equal(dec("500000")))
}

func TestNormalize_ThresholdWithoutFeeIsNotAvailable(t *testing.T) {
	n := NewNormalizer(nil)
	rec, err := n.Normalize(model.RawRecord{
		Slots: []model.RawSlot{{Threshold: "$0 - $150,000 (N/A)"}},
	})
	require.NoError(t, err)
	require.Len(t, rec.Tiers, 1)
	assert.Equal(t, model.FeeKindNotAvailable, rec.Tiers[0].FeeKind)
}

func TestNormalize_FeeWithoutThresholdIsMalformed(t *testing.T) {
	n := NewNormalizer(nil)
	rec, err := n.Normalize(model.RawRecord{
		Slots: []model.RawSlot{
			{Threshold: "$0+", Fee: "1%"},
			{Threshold: "", Fee: "0.50%"},
		},
	})
	require.Error(t, err)

	var malformed *MalformedTierError
	require.True(t, errors.As(err, &malformed))
	assert.Equal(t, 1, malformed.Slot)

	// the tier is still emitted from $0
	require.Len(t, rec.Tiers, 2)
	assert.True(t, rec.Tiers[1].LowerBound.IsZero())
	assert.Equal(t, model.FeeKindPercentage, rec.Tiers[1].FeeKind)
}

func TestNormalize_FlatFeeOnlyRecordIsNotMalformed(t *testing.T) {
	n := NewNormalizer(nil)
	rec, err := n.Normalize(model.RawRecord{
		FlatFee: "Yes",
		Slots:   []model.RawSlot{{Fee: "$2,500"}},
	})
	require.NoError(t, err)
	require.Len(t, rec.Tiers, 1)
	assert.Equal(t, model.FeeKindFlatFee, rec.Tiers[0].FeeKind)
	assert.True(t, rec.FlatFee)
}

func TestNormalize_UnrecognisedTextIsMalformed(t *testing.T) {
	n := NewNormalizer(nil)
	rec, err := n.Normalize(model.RawRecord{
		Slots: []model.RawSlot{{Threshold: "please see brochure"}},
	})
	var malformed *MalformedTierError
	require.True(t, errors.As(err, &malformed))
	assert.Empty(t, rec.Tiers)
}

func TestNormalize_AuxiliaryFields(t *testing.T) {
	n := NewNormalizer(nil)
	rec, err := n.Normalize(model.RawRecord{
		FlatFee:           "No",
		MinimumInvestment: "$250,000",
		Negotiable:        "Yes",
	})
	require.NoError(t, err)
	assert.False(t, rec.FlatFee)
	assert.True(t, rec.Negotiable)
	assert.True(t, rec.HasMinimumInvestment)
	assert.True(t, rec.MinimumInvestment.Equal(dec("250000")))
	assert.Equal(t, "USD", rec.MinimumInvestmentCurrency)
}

func TestParseFlatFeeFlag(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{"Yes", true},
		{"No", false},
		{"", false},
		{"-1", false},
		{"No fee information available.", false},
		{"Flat fee of $1,500", true},
		{"No flat fee", false},
		{"$1,000 - $5,000", false},
		{"0.50% - 1.00%", false},
		{"$2,500", true},
		{"Negotiable", true},
		{"unclear", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseFlatFeeFlag(tt.input))
		})
	}
}

func TestParseMinimumInvestment(t *testing.T) {
	tests := []struct {
		input    string
		amount   string
		present  bool
		currency string
	}{
		{"No", "0", false, "USD"},
		{"-1", "0", false, "USD"},
		{"Yes", "1", true, "USD"},
		{"Negotiable", "1", true, "USD"},
		{"$250,000", "250000", true, "USD"},
		{"$100,000 - $500,000", "100000", true, "USD"},
		{"1 million", "1000000", true, "USD"},
		{"$2 million", "2000000", true, "USD"},
		{"CHF 500,000", "500000", true, "CHF"},
		{"1,000 EUR", "1000", true, "EUR"},
		{"£50,000", "50000", true, "GBP"},
		{"500000", "500000", true, "USD"},
		{"ask us", "1", true, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseMinimumInvestment(tt.input)
			assert.True(t, got.Amount.Equal(dec(tt.amount)), "amount: got %s", got.Amount)
			assert.Equal(t, tt.present, got.Present)
			assert.Equal(t, tt.currency, got.Currency)
		})
	}
}

func TestParseAmount(t *testing.T) {
	got, ok := ParseAmount("about $1.2M")
	require.True(t, ok)
	assert.True(t, got.Equal(dec("1200000")))

	_, ok = ParseAmount("nothing here")
	assert.False(t, ok)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "$1M - $5M", Clean("  \"$1M – $5M\" "))
}
