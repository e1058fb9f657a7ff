// Package runner builds and executes invocations of the external ccdec
// conformance tool, one execution unit at a time.
package runner

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/collabora/cros-codecs-ci/internal/fetch"
	"github.com/collabora/cros-codecs-ci/internal/matrix"
)

// DefaultTimeout is the per-unit timeout in seconds handed to the tool's
// -t flag. Timeout enforcement is delegated entirely to the tool; the
// orchestrator itself never times a unit out.
const DefaultTimeout = 300

// Result is the outcome of one external invocation. The tool's exit status
// is reported, never reinterpreted: a failing suite is a per-unit result,
// not a Go-level error, so one failure cannot stop the remaining units.
type Result struct {
	// ExitCode is the tool's exit status; -1 when the process could not
	// be started.
	ExitCode int

	// Err is set when the invocation could not run at all (tool not
	// found, spawn failure) or, for a started process, mirrors the
	// non-zero exit for logging. Never propagated as fatal by callers.
	Err error
}

// Runner executes execution units against a resolved tool binary.
type Runner struct {
	// Locator resolves the ccdec binary path per invocation, so a binary
	// installed mid-run (or missing entirely) is observed per unit.
	Locator fetch.Locator

	// Timeout in seconds for the tool's -t flag. Defaults to
	// DefaultTimeout when zero.
	Timeout int

	// Stdout and Stderr receive the tool's streams unmodified; they
	// constitute the authoritative test report. Default to the process
	// streams.
	Stdout io.Writer
	Stderr io.Writer
}

// BuildArgs translates a unit into the tool's argument list:
// the test-suite identifier, a decoder identifier of "ccdec-" + codec, the
// fixed timeout, a concurrency level of 1 when single-threaded, and the
// skip vectors. The skip flag is passed once with the remaining vectors as
// bare trailing values; the tool accepts the whole set either way.
func (r *Runner) BuildArgs(unit matrix.ExecutionUnit) []string {
	args := []string{
		"-ts", unit.Suite,
		"-d", "ccdec-" + unit.Codec,
		"-t", strconv.Itoa(r.timeout()),
	}
	if unit.SingleThread {
		args = append(args, "-j", "1")
	}
	for i, skip := range unit.SkipVectors {
		if i == 0 {
			args = append(args, "-sv")
		}
		args = append(args, skip)
	}
	return args
}

// Run executes one unit and waits for the spawned process to terminate
// before returning. The tool's own report goes straight to the configured
// streams.
func (r *Runner) Run(ctx context.Context, unit matrix.ExecutionUnit) Result {
	tool, err := r.Locator.Resolve()
	if err != nil {
		return Result{ExitCode: -1, Err: err}
	}

	cmd := exec.CommandContext(ctx, tool, r.BuildArgs(unit)...)
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{ExitCode: exitErr.ExitCode(), Err: err}
		}
		return Result{ExitCode: -1, Err: err}
	}
	return Result{ExitCode: 0}
}

func (r *Runner) timeout() int {
	if r.Timeout > 0 {
		return r.Timeout
	}
	return DefaultTimeout
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}
