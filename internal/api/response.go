package api

import (
	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// RowResponse is the API view of one classified record.
type RowResponse struct {
	SourceFile    string             `json:"source_file,omitempty"`
	RowIndex      int                `json:"row_index"`
	Phase         model.Phase        `json:"phase"`
	ProductCount  int                `json:"product_count"`
	Products      []string           `json:"products"`
	LowConfidence bool               `json:"low_confidence"`
	Reasons       []model.ReasonCode `json:"reasons,omitempty"`
	Record        model.Record       `json:"record"`
}

// BatchResponse lists rows in request order.
type BatchResponse struct {
	Rows          []RowResponse `json:"rows"`
	LowConfidence int           `json:"low_confidence"`
}

func toRowResponse(row model.OutputRow) RowResponse {
	evt := model.NewRecordClassifiedEvent(row)
	return RowResponse{
		SourceFile:    evt.SourceFile,
		RowIndex:      evt.RowIndex,
		Phase:         evt.Phase,
		ProductCount:  evt.ProductCount,
		Products:      evt.Products,
		LowConfidence: evt.LowConfidence,
		Reasons:       evt.Reasons,
		Record:        row.Record,
	}
}
