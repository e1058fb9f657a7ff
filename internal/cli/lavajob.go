package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/collabora/cros-codecs-ci/internal/lavajob"
)

// LavaJobOptions holds flags for the lava-job command.
type LavaJobOptions struct {
	*RootOptions
	Template     string
	TestBranch   string
	TestRepo     string
	Arch         string
	CcdecBuildID string
}

// NewLavaJobCommand creates the lava-job command.
func NewLavaJobCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LavaJobOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "lava-job",
		Short: "Render a LAVA job definition from a template",
		Long: `Render a LAVA job definition from a template.

Substitutes the build id, architecture, device type, branch, and repository
URL into the template and writes the job to stdout. Rendering is strict: a
template key without a value fails the command.

Example:
  ccdec-ci lava-job --template ci/job.yaml.tmpl --test-repo https://gitlab.collabora.com/x/cros-codecs --arch intel --ccdec-build-id 12345`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return renderLavaJob(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Template, "template", "", "input template file (required)")
	cmd.Flags().StringVar(&opts.TestBranch, "test-branch", "main", "the branch being tested")
	cmd.Flags().StringVar(&opts.TestRepo, "test-repo", "", "the repository being tested (required)")
	cmd.Flags().StringVar(&opts.Arch, "arch", "", fmt.Sprintf("architecture %v (required)", SupportedArchs))
	cmd.Flags().StringVar(&opts.CcdecBuildID, "ccdec-build-id", "", "ccdec build id (required)")
	_ = cmd.MarkFlagRequired("template")
	_ = cmd.MarkFlagRequired("test-repo")
	_ = cmd.MarkFlagRequired("arch")
	_ = cmd.MarkFlagRequired("ccdec-build-id")

	return cmd
}

func renderLavaJob(opts *LavaJobOptions, cmd *cobra.Command) error {
	if !isSupportedArch(opts.Arch) {
		return NewExitError(ExitCommandError, fmt.Sprintf("unsupported architecture %q: must be one of %v", opts.Arch, SupportedArchs))
	}

	deviceType, err := lavajob.DeviceTypeFor(opts.Arch)
	if err != nil {
		return WrapExitError(ExitCommandError, "resolving device type", err)
	}

	job, err := lavajob.RenderFile(opts.Template, lavajob.Context{
		CcdecBuildID: opts.CcdecBuildID,
		Arch:         opts.Arch,
		DeviceType:   deviceType,
		TestBranch:   opts.TestBranch,
		RepoURL:      opts.TestRepo,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "rendering LAVA job", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), job)
	return nil
}
