// Package orchestrator composes fetch, config, matrix, and runner into one
// conformance run.
package orchestrator

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/collabora/cros-codecs-ci/internal/config"
	"github.com/collabora/cros-codecs-ci/internal/fetch"
	"github.com/collabora/cros-codecs-ci/internal/matrix"
	"github.com/collabora/cros-codecs-ci/internal/runner"
)

// UnitRunner executes a single execution unit. Satisfied by
// *runner.Runner; tests substitute a recording fake.
type UnitRunner interface {
	Run(ctx context.Context, unit matrix.ExecutionUnit) runner.Result
}

// Params parameterizes one orchestration run, mirroring the CLI surface.
type Params struct {
	// BuildID labels the ccdec build under test. Logging only: the
	// artifact URL is fixed, see fetch.DefaultArtifactURL.
	BuildID string

	// ConfigPath locates the test-matrix document.
	ConfigPath string

	// Arch selects which architecture's subtree to run.
	Arch string

	// SingleThread forces the tool's concurrency level to 1 per unit.
	SingleThread bool
}

// Summary describes what one run attempted. It is informational: per-unit
// failures are counted here and logged but deliberately not folded into
// the process exit code, which reflects orchestration mechanics only.
type Summary struct {
	RunToken string
	Units    int
	Failed   int
}

// Orchestrator drives a full conformance run: install the tool once, load
// the matrix, then execute every unit for the selected architecture
// strictly sequentially. Devices under test are resource-constrained, so
// one external process runs at a time, started and fully awaited before
// the next unit begins.
type Orchestrator struct {
	Fetcher *fetch.Fetcher

	// Runner overrides the unit runner, for tests. When nil, a
	// runner.Runner wired to the fetcher's locator is used.
	Runner UnitRunner

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Run performs one orchestration pass.
//
// The fetch step is best-effort: a failure is logged and the run continues,
// since a binary installed by a previous run may still serve. A config load
// failure is fatal and returned. Unit failures are isolated: each is logged
// with its codec and suite identifiers and the walk proceeds, so the run
// attempts every declared suite for the matched architecture exactly once.
func (o *Orchestrator) Run(ctx context.Context, params Params) (*Summary, error) {
	token := uuid.Must(uuid.NewV7()).String()
	log := o.logger().With("run", token)
	summary := &Summary{RunToken: token}

	log.Info("starting conformance run",
		"arch", params.Arch,
		"build_id", params.BuildID,
		"single_thread", params.SingleThread)

	loc, err := o.Fetcher.Ensure(ctx, params.BuildID)
	if err != nil {
		// Best-effort by policy: a previously installed binary may
		// still be usable, and units without one fail individually.
		log.Warn("tool fetch failed, continuing", "error", err)
	} else {
		log.Info("tool installed", "path", loc.InstallPath, "build_id", params.BuildID)
	}

	run := o.Runner
	if run == nil {
		run = &runner.Runner{Locator: loc}
	}

	cfg, err := config.Load(params.ConfigPath)
	if err != nil {
		return summary, err
	}

	// Only the selected entry is held to the schema; a malformed entry
	// for some other architecture must not block this run.
	entry, err := cfg.Arch(params.Arch)
	if err != nil {
		return summary, err
	}

	for unit := range matrix.Walk(entry, params.SingleThread) {
		summary.Units++
		log.Info("running test suite",
			"codec", unit.Codec,
			"suite", unit.Suite,
			"device_type", unit.DeviceType,
			"skip_vectors", len(unit.SkipVectors))

		res := run.Run(ctx, unit)
		if res.Err != nil || res.ExitCode != 0 {
			summary.Failed++
			log.Error("test suite failed",
				"codec", unit.Codec,
				"suite", unit.Suite,
				"exit_code", res.ExitCode,
				"error", res.Err)
		}
	}

	log.Info("run complete", "units", summary.Units, "failed", summary.Failed)
	return summary, nil
}

func (o *Orchestrator) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
