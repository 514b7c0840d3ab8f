package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"0", "$0"},
		{"500", "$500"},
		{"1000", "$1,000"},
		{"250000", "$250,000"},
		{"1000000", "$1,000,000"},
		{"1500000000", "$1,500,000,000"},
		{"1500.5", "$1,500.50"},
		{"1000000.00", "$1,000,000"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, Currency(d(tt.input)))
		})
	}
}

func TestCurrency_FromScaledDecimal(t *testing.T) {
	// amounts parsed with a magnitude suffix carry a positive exponent
	assert.Equal(t, "$5,000,000", Currency(decimal.New(5, 6)))
}

func TestToken(t *testing.T) {
	tests := []struct {
		name     string
		tier     model.Tier
		expected string
	}{
		{
			name:     "percentage",
			tier:     model.Tier{LowerBound: d("0"), FeeKind: model.FeeKindPercentage, Rate: d("1")},
			expected: "($0+) (1.00%)",
		},
		{
			name:     "large threshold",
			tier:     model.Tier{LowerBound: d("1000000"), FeeKind: model.FeeKindPercentage, Rate: d("0.75")},
			expected: "($1,000,000+) (0.75%)",
		},
		{
			name: "unsplit range",
			tier: model.Tier{
				LowerBound: d("0"), FeeKind: model.FeeKindPercentageRange,
				RateLow: d("0.32"), RateHigh: d("2.5"),
			},
			expected: "($0+) (0.32%-2.50%)",
		},
		{
			name:     "flat fee",
			tier:     model.Tier{LowerBound: d("0"), FeeKind: model.FeeKindFlatFee, Amount: d("1500")},
			expected: "($0+) ($1,500.00)",
		},
		{
			name:     "not available",
			tier:     model.Tier{LowerBound: d("0"), FeeKind: model.FeeKindNotAvailable},
			expected: "($0+) (N/A)",
		},
		{
			name: "display upper bound",
			tier: model.Tier{
				LowerBound: d("0"), UpperBound: decimal.NewNullDecimal(d("500000")),
				FeeKind: model.FeeKindPercentage, Rate: d("1.25"),
			},
			expected: "($0-$500,000) (1.25%)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Token(tt.tier))
		})
	}
}

func TestRender(t *testing.T) {
	products := []model.Product{
		{Tiers: []model.Tier{
			{LowerBound: d("0"), FeeKind: model.FeeKindPercentage, Rate: d("1.00")},
			{LowerBound: d("1000000"), FeeKind: model.FeeKindPercentage, Rate: d("0.75"), SourceSlotIndex: 1},
		}},
		{Tiers: []model.Tier{
			{LowerBound: d("0"), FeeKind: model.FeeKindPercentage, Rate: d("2.00"), SourceSlotIndex: 2},
		}},
	}

	rendered, columns := New().Render(products)
	require.Len(t, rendered, 2)
	assert.Equal(t, []string{"($0+) (1.00%)", "($1,000,000+) (0.75%)"}, rendered[0].Tokens)
	assert.Equal(t, "($0+) (1.00%); ($1,000,000+) (0.75%)", columns[0])
	assert.Equal(t, "($0+) (2.00%)", columns[1])
	for i := 2; i < model.MaxProducts; i++ {
		assert.Empty(t, columns[i])
	}
	assert.Nil(t, products[0].Tokens)
}
