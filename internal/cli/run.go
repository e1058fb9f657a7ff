package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/collabora/cros-codecs-ci/internal/config"
	"github.com/collabora/cros-codecs-ci/internal/fetch"
	"github.com/collabora/cros-codecs-ci/internal/orchestrator"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Arch         string
	ConfigFile   string
	CcdecBuildID string
	Single       bool

	// Orchestrator allows overriding the orchestrator (for testing).
	Orchestrator *orchestrator.Orchestrator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance-test matrix for one architecture",
		Long: `Run the conformance-test matrix for one architecture.

Installs the ccdec binary (best effort), loads the test-matrix config, and
invokes fluster once per declared test suite of the selected architecture,
sequentially. The tool's own report on stdout/stderr is authoritative;
individual suite failures are logged and do not affect the exit code.

Example:
  ccdec-ci run --arch intel --config-file ci/test-cases/config.yaml --ccdec-build-id 12345
  ccdec-ci run --arch amd --config-file config.yaml --ccdec-build-id 12345 --single`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatrix(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Arch, "arch", "", fmt.Sprintf("architecture %v (required)", SupportedArchs))
	cmd.Flags().StringVar(&opts.ConfigFile, "config-file", "", "path to the test-matrix configuration file (required)")
	cmd.Flags().StringVar(&opts.CcdecBuildID, "ccdec-build-id", "", "ccdec binary build id, used for labeling (required)")
	cmd.Flags().BoolVar(&opts.Single, "single", false, "force the tool to run test vectors single-threaded")
	_ = cmd.MarkFlagRequired("arch")
	_ = cmd.MarkFlagRequired("config-file")
	_ = cmd.MarkFlagRequired("ccdec-build-id")

	return cmd
}

func runMatrix(opts *RunOptions, cmd *cobra.Command) error {
	if !isSupportedArch(opts.Arch) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unsupported architecture %q: must be one of %v", opts.Arch, SupportedArchs))
	}

	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	logger := slog.New(handler)

	orch := opts.Orchestrator
	if orch == nil {
		orch = &orchestrator.Orchestrator{
			Fetcher: &fetch.Fetcher{},
			Logger:  logger,
		}
	}

	summary, err := orch.Run(cmd.Context(), orchestrator.Params{
		BuildID:      opts.CcdecBuildID,
		ConfigPath:   opts.ConfigFile,
		Arch:         opts.Arch,
		SingleThread: opts.Single,
	})
	if err != nil {
		// Config errors are the only fatal path; report with the
		// underlying diagnostic and a command-error exit code.
		if isConfigError(err) {
			return WrapExitError(ExitCommandError, "loading test-matrix config", err)
		}
		return WrapExitError(ExitFailure, "conformance run failed", err)
	}

	formatter := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}
	return formatter.Success(fmt.Sprintf("ran %d test suite(s), %d failed", summary.Units, summary.Failed))
}

func isConfigError(err error) bool {
	var parseErr *config.ParseError
	var schemaErr *config.SchemaError
	return errors.As(err, &parseErr) || errors.As(err, &schemaErr)
}
