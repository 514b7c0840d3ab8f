package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// RawValue is a cell as delivered by the extraction step. JSON strings,
// numbers and booleans are all accepted and kept in their textual form.
type RawValue string

func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = RawValue(n.String())
		return nil
	}
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if b {
			*v = "Yes"
		} else {
			*v = "No"
		}
		return nil
	}
	return fmt.Errorf("raw value: unsupported JSON token %s", string(data))
}

func (v RawValue) String() string {
	return strings.TrimSpace(string(v))
}

// RawSlot is one threshold/fee pair. Fee may be blank when the threshold
// cell carries both parts, e.g. "$0 - $1,000,000 (1.00%)".
type RawSlot struct {
	Threshold RawValue `json:"threshold"`
	Fee       RawValue `json:"fee,omitempty"`
}

// RawRecord is one filing row before normalization.
type RawRecord struct {
	SourceFile        string    `json:"source_file,omitempty"`
	RowIndex          int       `json:"row_index"`
	Slots             []RawSlot `json:"slots"`
	FlatFee           RawValue  `json:"flat_fee,omitempty"`
	MinimumInvestment RawValue  `json:"minimum_investment,omitempty"`
	Negotiable        RawValue  `json:"negotiable,omitempty"`

	// Columns holds the untouched input row, aligned with the source header.
	Columns []string `json:"-"`
}

// Validate checks the structural limits of a raw record.
func (r RawRecord) Validate() error {
	if r.RowIndex < 0 {
		return fmt.Errorf("row_index must be non-negative")
	}
	if len(r.Slots) > MaxSlots {
		return fmt.Errorf("at most %d slots allowed, got %d", MaxSlots, len(r.Slots))
	}
	return nil
}

// Record is one filing's normalized fee disclosure. Tiers holds only the
// non-Empty tiers, in slot order.
type Record struct {
	SourceFile                string          `json:"source_file,omitempty"`
	RowIndex                  int             `json:"row_index"`
	Tiers                     []Tier          `json:"tiers"`
	FlatFee                   bool            `json:"flat_fee"`
	MinimumInvestment         decimal.Decimal `json:"minimum_investment"`
	MinimumInvestmentCurrency string          `json:"minimum_investment_currency"`
	HasMinimumInvestment      bool            `json:"has_minimum_investment"`
	Negotiable                bool            `json:"negotiable"`

	Columns []string `json:"-"`
}
