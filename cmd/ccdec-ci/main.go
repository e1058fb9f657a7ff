// Command ccdec-ci drives cros-codecs conformance testing in CI: it runs
// the fluster/ccdec test matrix for one architecture and renders the LAVA
// jobs that schedule those runs.
package main

import (
	"fmt"
	"os"

	"github.com/collabora/cros-codecs-ci/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
