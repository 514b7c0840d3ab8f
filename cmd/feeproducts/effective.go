package main

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/Checker-Finance/adviser-fees/internal/effective"
)

func newEffectiveFeeCmd(opts *options) *cobra.Command {
	var (
		product string
		value   string
	)

	cmd := &cobra.Command{
		Use:   "effective-fee",
		Short: "Compute the blended annual fee of one product at a portfolio value",
		Example: `  feeproducts effective-fee --product "($0+) (1.00%); ($1,000,000+) (0.75%)" --value 2500000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			portfolio, err := decimal.NewFromString(value)
			if err != nil {
				return fmt.Errorf("invalid --value %q: %w", value, err)
			}
			p, err := effective.ParseProduct(product, opts.cfg.Separator)
			if err != nil {
				return err
			}
			res, err := effective.Rate(p, portfolio)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().StringVar(&product, "product", "", "rendered product column")
	cmd.Flags().StringVar(&value, "value", "", "portfolio value in dollars")
	_ = cmd.MarkFlagRequired("product")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}
