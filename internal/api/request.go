package api

import (
	"github.com/shopspring/decimal"

	"github.com/Checker-Finance/adviser-fees/pkg/model"
)

// BatchRequest carries an ordered list of raw records.
type BatchRequest struct {
	Records []model.RawRecord `json:"records"`
}

// EffectiveFeeRequest asks for the blended fee of one rendered product
// column at a portfolio value.
type EffectiveFeeRequest struct {
	Product        string          `json:"product" example:"($0+) (1.00%); ($1,000,000+) (0.75%)"`
	PortfolioValue decimal.Decimal `json:"portfolio_value" example:"2500000"`
}
