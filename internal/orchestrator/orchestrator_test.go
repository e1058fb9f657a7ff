package orchestrator

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/collabora/cros-codecs-ci/internal/config"
	"github.com/collabora/cros-codecs-ci/internal/fetch"
	"github.com/collabora/cros-codecs-ci/internal/matrix"
	"github.com/collabora/cros-codecs-ci/internal/runner"
)

const sampleDoc = `
intel:
  device_type: volteer
  codecs:
    - vp9:
        test-suites:
          - A:
              skip-vectors: []
          - B:
              skip-vectors: [v1, v2]
amd:
  device_type: grunt
  codecs:
    - av1:
        test-suites:
          - C:
              skip-vectors: []
`

// fakeRunner records every unit it is asked to run and returns canned
// results keyed by suite name.
type fakeRunner struct {
	units   []matrix.ExecutionUnit
	results map[string]runner.Result
}

func (f *fakeRunner) Run(ctx context.Context, unit matrix.ExecutionUnit) runner.Result {
	f.units = append(f.units, unit)
	if res, ok := f.results[unit.Suite]; ok {
		return res
	}
	return runner.Result{ExitCode: 0}
}

func writeConfig(t *testing.T, doc string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

// testOrchestrator wires a quiet logger, an artifact server, and the given
// unit runner.
func testOrchestrator(t *testing.T, run UnitRunner) *Orchestrator {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("fake-ccdec"))
	}))
	t.Cleanup(srv.Close)

	return &Orchestrator{
		Fetcher: &fetch.Fetcher{InstallDir: filepath.Join(t.TempDir(), "cros-codecs"), ArtifactURL: srv.URL},
		Runner:  run,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestRun_IntelSubtreeOnly(t *testing.T) {
	fake := &fakeRunner{}
	orch := testOrchestrator(t, fake)

	summary, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: writeConfig(t, sampleDoc),
		Arch:       "intel",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Units)
	assert.Equal(t, 0, summary.Failed)
	assert.NotEmpty(t, summary.RunToken)

	require.Len(t, fake.units, 2)
	assert.Equal(t, "A", fake.units[0].Suite)
	assert.Equal(t, "B", fake.units[1].Suite)
	assert.Equal(t, []string{"v1", "v2"}, fake.units[1].SkipVectors)
	for _, unit := range fake.units {
		assert.Equal(t, "vp9", unit.Codec)
		assert.Equal(t, "volteer", unit.DeviceType)
		assert.NotEqual(t, "C", unit.Suite, "amd's suite must never run under --arch intel")
	}
}

func TestRun_FailingUnitDoesNotStopTheRun(t *testing.T) {
	fake := &fakeRunner{results: map[string]runner.Result{
		"A": {ExitCode: 1, Err: assert.AnError},
	}}
	orch := testOrchestrator(t, fake)

	summary, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: writeConfig(t, sampleDoc),
		Arch:       "intel",
	})
	require.NoError(t, err, "per-unit failures are isolated, never fatal")
	assert.Equal(t, 2, summary.Units)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, fake.units, 2, "B must still run after A fails")
	assert.Equal(t, "B", fake.units[1].Suite)
}

func TestRun_ConfigErrorIsFatalBeforeAnyInvocation(t *testing.T) {
	fake := &fakeRunner{}
	orch := testOrchestrator(t, fake)

	// device_type missing for the selected architecture.
	doc := `
intel:
  codecs:
    - vp9:
        test-suites:
          - A:
              skip-vectors: []
`
	_, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: writeConfig(t, doc),
		Arch:       "intel",
	})
	require.Error(t, err)

	var schemaErr *config.SchemaError
	assert.ErrorAs(t, err, &schemaErr)
	assert.Empty(t, fake.units, "no external invocation may occur on config errors")
}

func TestRun_MalformedOtherArchDoesNotBlockRun(t *testing.T) {
	// A shared config whose amd entry is schema-invalid must still run
	// the intel suites; unmatched entries are skipped entirely.
	doc := `
intel:
  device_type: volteer
  codecs:
    - vp9:
        test-suites:
          - A:
              skip-vectors: []
          - B:
              skip-vectors: [v1]
amd:
  codecs:
    - av1:
        test-suites:
          - C:
              skip-vectors: []
`
	fake := &fakeRunner{}
	orch := testOrchestrator(t, fake)

	summary, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: writeConfig(t, doc),
		Arch:       "intel",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Units)
	require.Len(t, fake.units, 2)
	assert.Equal(t, "A", fake.units[0].Suite)
	assert.Equal(t, "B", fake.units[1].Suite)
}

func TestRun_MissingConfigFileIsFatal(t *testing.T) {
	fake := &fakeRunner{}
	orch := testOrchestrator(t, fake)

	_, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: filepath.Join(t.TempDir(), "nope.yaml"),
		Arch:       "intel",
	})
	require.Error(t, err)

	var parseErr *config.ParseError
	assert.ErrorAs(t, err, &parseErr)
	assert.Empty(t, fake.units)
}

func TestRun_AbsentArchitectureIsANoOp(t *testing.T) {
	fake := &fakeRunner{}
	orch := testOrchestrator(t, fake)

	summary, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: writeConfig(t, sampleDoc),
		Arch:       "arm",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Units)
	assert.Empty(t, fake.units)
}

func TestRun_FetchFailureIsBestEffort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	fake := &fakeRunner{}
	orch := &Orchestrator{
		Fetcher: &fetch.Fetcher{InstallDir: filepath.Join(t.TempDir(), "cros-codecs"), ArtifactURL: srv.URL},
		Runner:  fake,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	summary, err := orch.Run(context.Background(), Params{
		BuildID:    "12345",
		ConfigPath: writeConfig(t, sampleDoc),
		Arch:       "intel",
	})
	require.NoError(t, err, "fetch failures never abort the run")
	assert.Equal(t, 2, summary.Units)
	require.Len(t, fake.units, 2)
}

func TestRun_SingleThreadReachesEveryUnit(t *testing.T) {
	fake := &fakeRunner{}
	orch := testOrchestrator(t, fake)

	_, err := orch.Run(context.Background(), Params{
		BuildID:      "12345",
		ConfigPath:   writeConfig(t, sampleDoc),
		Arch:         "intel",
		SingleThread: true,
	})
	require.NoError(t, err)
	for _, unit := range fake.units {
		assert.True(t, unit.SingleThread)
	}
}
