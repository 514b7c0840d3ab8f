package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the canonical wrapper for events published to NATS.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	CorrelationID uuid.UUID       `json:"correlation_id"`
	Topic         string          `json:"topic"`
	EventType     string          `json:"event_type"`
	Version       string          `json:"version"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload"`
}

type RecordClassifiedEvent struct {
	SourceFile    string       `json:"source_file,omitempty"`
	RowIndex      int          `json:"row_index"`
	Phase         Phase        `json:"phase"`
	ProductCount  int          `json:"product_count"`
	Products      []string     `json:"products"`
	LowConfidence bool         `json:"low_confidence"`
	Reasons       []ReasonCode `json:"reasons,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

type FileProcessedEvent struct {
	SourceFile    string    `json:"source_file"`
	OutputFile    string    `json:"output_file"`
	Rows          int       `json:"rows"`
	LowConfidence int       `json:"low_confidence"`
	DurationMS    int64     `json:"duration_ms"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewRecordClassifiedEvent summarises an output row for downstream consumers.
func NewRecordClassifiedEvent(row OutputRow) RecordClassifiedEvent {
	products := make([]string, 0, MaxProducts)
	for _, p := range row.Products {
		if p != "" {
			products = append(products, p)
		}
	}
	return RecordClassifiedEvent{
		SourceFile:    row.Record.SourceFile,
		RowIndex:      row.Record.RowIndex,
		Phase:         row.Phase,
		ProductCount:  len(products),
		Products:      products,
		LowConfidence: row.LowConfidence,
		Reasons:       row.Reasons,
		Timestamp:     time.Now().UTC(),
	}
}
