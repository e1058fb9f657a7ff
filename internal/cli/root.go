// Package cli implements the ccdec-ci command surface.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// SupportedArchs is the closed set of architecture identifiers the CI
// currently targets.
var SupportedArchs = []string{"amd", "intel"}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the ccdec-ci CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "ccdec-ci",
		Short: "cros-codecs conformance-test CI driver",
		Long: "Drives fluster conformance runs of the ccdec decoder across the\n" +
			"(architecture, codec, test-suite) matrix and generates the LAVA jobs\n" +
			"that schedule those runs on real devices.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewLavaJobCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func isSupportedArch(arch string) bool {
	for _, a := range SupportedArchs {
		if a == arch {
			return true
		}
	}
	return false
}
