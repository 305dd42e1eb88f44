package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"

	cfgPath string
	debug   bool

	rootCmd = &cobra.Command{
		Use:   "valpas",
		Short: "Compliance gate for transit gateway attachments",
		Long: `Valpas - Compliance gate for transit gateway attachments

Valpas inspects every VPC attachment waiting for acceptance on the
shared transit gateway, runs a set of compliance checks against the
requesting VPC (default VPC, internet gateway exposure, IPAM pool
compliance and CIDR overlap) and reduces them to one pass/fail verdict
per attachment. It computes decisions; it never accepts or rejects
attachments itself.`,
		Version: version,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging()
		},
	}
)

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
}

func init() {
	rootCmd.SetVersionTemplate(`Valpas {{.Version}} - Compliance gate for transit gateway attachments
`)
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "valpas.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}
