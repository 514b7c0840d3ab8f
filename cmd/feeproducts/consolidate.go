package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Checker-Finance/adviser-fees/internal/export"
	"github.com/Checker-Finance/adviser-fees/pkg/config"
)

func newConsolidateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "consolidate",
		Short: "Merge processed_*.csv files into one table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, path, err := consolidateOutput(opts.cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "consolidated %d rows into %s\n", n, path)
			return nil
		},
	}
}

func consolidateOutput(cfg *config.Config) (int, string, error) {
	files, err := filepath.Glob(filepath.Join(cfg.OutputDir, "processed_*.csv"))
	if err != nil {
		return 0, "", err
	}
	if len(files) == 0 {
		return 0, "", fmt.Errorf("no processed files in %s", cfg.OutputDir)
	}

	out := filepath.Join(cfg.OutputDir, cfg.OutputFile)
	n, err := export.Consolidate(files, out)
	if err != nil {
		return 0, "", err
	}
	return n, out, nil
}
