package api

import (
	"fmt"
	"strings"
)

func (r BatchRequest) Validate(maxRecords int) error {
	if len(r.Records) == 0 {
		return fmt.Errorf("records must not be empty")
	}
	if maxRecords > 0 && len(r.Records) > maxRecords {
		return fmt.Errorf("at most %d records per batch, got %d", maxRecords, len(r.Records))
	}
	for i, rec := range r.Records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}
	return nil
}

func (r EffectiveFeeRequest) Validate() error {
	if strings.TrimSpace(r.Product) == "" {
		return fmt.Errorf("product is required")
	}
	if !r.PortfolioValue.IsPositive() {
		return fmt.Errorf("portfolio_value must be greater than 0")
	}
	return nil
}
