// Package fetch installs the external ccdec conformance binary and resolves
// its location for the runner.
//
// Installation is best-effort by policy: the orchestrator logs a failed
// fetch and keeps going, because a compatible binary left behind by a
// previous run is still usable. Execution units that genuinely have no
// binary fail individually with a tool-not-found condition instead of the
// whole run aborting up front.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	// ToolName is the conformance binary's name, also used for $PATH
	// fallback lookup.
	ToolName = "ccdec"

	// DefaultInstallDir is the well-known install location on the device
	// under test.
	DefaultInstallDir = "/opt/cros-codecs"

	// DefaultArtifactURL hosts the ccdec artifact. Only one build is
	// hosted at a time, so the URL is fixed and the build id labels logs
	// only. Known limitation, kept deliberately.
	DefaultArtifactURL = "https://people.collabora.com/~detlev/cros-codecs-tests/ccdec"
)

// ErrToolNotFound reports that no usable ccdec binary could be resolved,
// neither at the install location nor on $PATH.
var ErrToolNotFound = errors.New("ccdec binary not found")

// Locator is the resolved location of the conformance binary, handed to the
// runner instead of mutating the process-wide executable search path.
type Locator struct {
	// InstallPath is the expected installed binary path. May not exist
	// when the fetch failed and no prior install is present.
	InstallPath string
}

// Resolve returns an invocable path for the tool. The installed binary is
// preferred; a system-installed ccdec on $PATH is the fallback.
func (l Locator) Resolve() (string, error) {
	if info, err := os.Stat(l.InstallPath); err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0 {
		return l.InstallPath, nil
	}
	if path, err := exec.LookPath(ToolName); err == nil {
		return path, nil
	}
	return "", fmt.Errorf("%w: not at %s and not on PATH", ErrToolNotFound, l.InstallPath)
}

// Fetcher downloads and installs the conformance binary.
type Fetcher struct {
	// InstallDir is where the binary is placed. Defaults to
	// DefaultInstallDir when empty.
	InstallDir string

	// ArtifactURL overrides the download location, for tests.
	ArtifactURL string

	// Client defaults to http.DefaultClient.
	Client *http.Client
}

// Locator returns the locator for this fetcher's install location, valid
// whether or not Ensure succeeded.
func (f *Fetcher) Locator() Locator {
	return Locator{InstallPath: filepath.Join(f.installDir(), ToolName)}
}

// Ensure downloads the binary for buildID into the install directory and
// marks it executable for owner, group, and other. The returned locator is
// usable even on error, so a previously installed binary keeps working when
// a re-fetch fails.
func (f *Fetcher) Ensure(ctx context.Context, buildID string) (Locator, error) {
	loc := f.Locator()

	if err := os.MkdirAll(f.installDir(), 0o755); err != nil {
		return loc, fmt.Errorf("creating install dir: %w", err)
	}

	if err := f.download(ctx, loc.InstallPath); err != nil {
		return loc, fmt.Errorf("fetching %s build %s: %w", ToolName, buildID, err)
	}

	if err := os.Chmod(loc.InstallPath, 0o777); err != nil {
		return loc, fmt.Errorf("making %s executable: %w", loc.InstallPath, err)
	}
	return loc, nil
}

func (f *Fetcher) download(ctx context.Context, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.artifactURL(), nil)
	if err != nil {
		return err
	}
	resp, err := f.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s from %s", resp.Status, f.artifactURL())
	}

	// Download to a temp file first so a failed transfer never clobbers a
	// previously installed binary.
	tmp, err := os.CreateTemp(filepath.Dir(dest), ToolName+".download-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), dest)
}

func (f *Fetcher) installDir() string {
	if f.InstallDir != "" {
		return f.InstallDir
	}
	return DefaultInstallDir
}

func (f *Fetcher) artifactURL() string {
	if f.ArtifactURL != "" {
		return f.ArtifactURL
	}
	return DefaultArtifactURL
}

func (f *Fetcher) client() *http.Client {
	if f.Client != nil {
		return f.Client
	}
	return http.DefaultClient
}
