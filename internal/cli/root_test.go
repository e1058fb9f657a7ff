package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "ccdec-ci", cmd.Use)
	assert.Contains(t, cmd.Long, "fluster")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"run", "lava-job"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	runCmd, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"arch", "config-file", "ccdec-build-id", "single"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag --%s should exist", name)
	}
	assert.Equal(t, "false", runCmd.Flags().Lookup("single").DefValue)
}

func TestLavaJobCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	jobCmd, _, err := cmd.Find([]string{"lava-job"})
	require.NoError(t, err)

	for _, name := range []string{"template", "test-branch", "test-repo", "arch", "ccdec-build-id"} {
		assert.NotNil(t, jobCmd.Flags().Lookup(name), "flag --%s should exist", name)
	}
	assert.Equal(t, "main", jobCmd.Flags().Lookup("test-branch").DefValue)
}

func TestInvalidFormatRejected(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "lava-job",
		"--template", "x", "--test-repo", "y", "--arch", "intel", "--ccdec-build-id", "1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestRun_UnsupportedArch(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"run", "--arch", "arm", "--config-file", "config.yaml", "--ccdec-build-id", "1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "arm")
}

func TestLavaJob_RendersToStdout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("device_type: {{.device_type}}\nbuild: {{.ccdec_build_id}}\n"), 0o644))

	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"lava-job",
		"--template", path,
		"--test-repo", "https://example.com/cros-codecs",
		"--arch", "amd",
		"--ccdec-build-id", "987"})
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "device_type: hp-11A-G6-EE-grunt\nbuild: 987\n", out.String())
}

func TestLavaJob_UndefinedTemplateKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "job.yaml.tmpl")
	require.NoError(t, os.WriteFile(path, []byte("oops: {{.not_a_key}}\n"), 0o644))

	cmd := NewRootCommand()
	cmd.SetArgs([]string{"lava-job",
		"--template", path,
		"--test-repo", "r",
		"--arch", "intel",
		"--ccdec-build-id", "1"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
