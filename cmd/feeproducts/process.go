package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Checker-Finance/adviser-fees/internal/store"
	"github.com/Checker-Finance/adviser-fees/pkg/logger"
)

func newProcessCmd(opts *options) *cobra.Command {
	var (
		noLedger    bool
		consolidate bool
	)

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Classify every input file once and write processed CSVs",
		Long: `Reads each .csv/.xlsx file of the input directory, infers its fee products and
writes processed_<name>.csv into the output directory. Files already recorded
in the Redis ledger with an unchanged size and mtime are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := opts.cfg
			log := logger.L()

			var st *store.HybridStore
			if !noLedger {
				var err error
				if st, err = openStore(ctx, cfg, log); err != nil {
					return err
				}
				defer st.Close()
			}

			nc, pub, err := connectNATS(cfg, log)
			if err != nil {
				return err
			}
			if nc != nil {
				defer pub.Close()
			}

			d := newDirProcessor(cfg, newProcessor(cfg, log), st, pub, log)
			sum, err := d.ProcessDir(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "processed %d, skipped %d, failed %d\n", len(sum.Processed), len(sum.Skipped), len(sum.Failed))
			for _, f := range sum.Failed {
				fmt.Fprintf(out, "  failed: %s\n", f)
			}

			if consolidate {
				n, path, err := consolidateOutput(cfg)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "consolidated %d rows into %s\n", n, path)
			}

			if len(sum.Failed) > 0 {
				return fmt.Errorf("%d file(s) failed", len(sum.Failed))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&noLedger, "no-ledger", false, "process every file without the Redis ledger or row store")
	cmd.Flags().BoolVar(&consolidate, "consolidate", false, "merge processed files into $OUTPUT_FILE afterwards")
	return cmd
}
