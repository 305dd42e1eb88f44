package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yairfalse/valpas/config"
	"github.com/yairfalse/valpas/report"
	"github.com/yairfalse/valpas/types"
)

var (
	scanOutput string
	scanStrict bool
)

// scanCmd runs one compliance pass and prints the verdicts.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one compliance pass over pending attachments",
	Long: `Scan the hub for transit gateway VPC attachments waiting for
acceptance and print a per-attachment compliance verdict.

The scan only computes decisions. Accepting or rejecting attachments
stays with whatever consumes the output.`,
	Example: `  valpas scan                      # table output
  valpas scan --output json        # machine-readable verdicts
  valpas scan --strict=false       # always exit 0`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", report.FormatTable, "Output format: table, json")
	scanCmd.Flags().BoolVar(&scanStrict, "strict", true, "Exit non-zero when any attachment is NOT_COMPLIANT")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	sc, err := newScanner(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := sc.Scan(ctx)
	if err != nil {
		return err
	}

	printer := report.Printer{Format: scanOutput}
	if err := printer.Print(os.Stdout, result.Verdicts); err != nil {
		return err
	}

	if scanStrict {
		var bad int
		for _, v := range result.Verdicts {
			if v.Overall == types.StatusNotCompliant {
				bad++
			}
		}
		if bad > 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("%d of %d pending attachments are NOT_COMPLIANT", bad, len(result.Verdicts))
		}
	}
	return nil
}
