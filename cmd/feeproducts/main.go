package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Checker-Finance/adviser-fees/pkg/config"
	"github.com/Checker-Finance/adviser-fees/pkg/logger"
)

// Version is set at build time
var Version = "dev"

// options are the flags shared by every command. Set flags override the
// environment.
type options struct {
	cfg *config.Config

	inputDir  string
	outputDir string
	workers   int
	logLevel  string
	separator string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "feeproducts",
		Short:         "Infer fee product structures from adviser fee schedules",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.cfg = config.Load()
			opts.apply(cmd)
			logger.Init(opts.cfg.ServiceName, opts.cfg.Env, opts.cfg.LogLevel)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.inputDir, "input", "i", "", "input directory (default $INPUT_DIR)")
	flags.StringVarP(&opts.outputDir, "output", "o", "", "output directory (default $OUTPUT_DIR)")
	flags.IntVarP(&opts.workers, "workers", "w", 0, "classification workers, 0 for one per CPU (default $WORKERS)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (default $LOG_LEVEL)")
	flags.StringVar(&opts.separator, "separator", "", "product token separator (default $PRODUCT_SEPARATOR)")

	root.AddCommand(
		newProcessCmd(opts),
		newServeCmd(opts),
		newConsolidateCmd(opts),
		newEffectiveFeeCmd(opts),
	)
	return root
}

func (o *options) apply(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		o.cfg.InputDir = o.inputDir
	}
	if flags.Changed("output") {
		o.cfg.OutputDir = o.outputDir
	}
	if flags.Changed("workers") {
		o.cfg.Workers = o.workers
	}
	if flags.Changed("log-level") {
		o.cfg.LogLevel = o.logLevel
	}
	if flags.Changed("separator") {
		o.cfg.Separator = o.separator
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
