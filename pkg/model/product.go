package model

import "strings"

// MaxProducts is the number of product columns in an output row.
const MaxProducts = 8

// Product is one inferred fee schedule inside a record.
type Product struct {
	Tiers  []Tier   `json:"tiers"`
	Tokens []string `json:"tokens,omitempty"`
}

// Phase names the classification strategy that claimed a record.
type Phase string

const (
	PhaseNone           Phase = "none" // record had no tiers
	PhaseSimple         Phase = "simple"
	PhaseFeeRange       Phase = "fee_range"
	PhaseThresholdReset Phase = "threshold_reset"
	PhaseMultiSchedule  Phase = "multi_schedule"
	PhaseFallback       Phase = "fallback"
)

// ReasonCode explains why a record was marked low-confidence.
type ReasonCode string

const (
	ReasonOverflow      ReasonCode = "overflow"
	ReasonSlotMismatch  ReasonCode = "slot_mismatch"
	ReasonInvertedRange ReasonCode = "inverted_range"
	ReasonMalformedTier ReasonCode = "malformed_tier"
	ReasonAmbiguous     ReasonCode = "ambiguous_structure"
)

// OutputRow is a record augmented with its product columns and audit flags.
type OutputRow struct {
	Record        Record              `json:"record"`
	Products      [MaxProducts]string `json:"products"`
	Groups        []Product           `json:"groups,omitempty"`
	LowConfidence bool                `json:"low_confidence"`
	Reasons       []ReasonCode        `json:"reasons,omitempty"`
	Phase         Phase               `json:"phase"`
}

// AddReason flags the row low-confidence and records r once.
func (o *OutputRow) AddReason(r ReasonCode) {
	o.LowConfidence = true
	for _, existing := range o.Reasons {
		if existing == r {
			return
		}
	}
	o.Reasons = append(o.Reasons, r)
}

// ReasonString joins the reason codes for single-column output.
func (o OutputRow) ReasonString() string {
	parts := make([]string, len(o.Reasons))
	for i, r := range o.Reasons {
		parts[i] = string(r)
	}
	return strings.Join(parts, "|")
}

// ProductCount returns the number of non-empty product columns.
func (o OutputRow) ProductCount() int {
	n := 0
	for _, p := range o.Products {
		if p != "" {
			n++
		}
	}
	return n
}
