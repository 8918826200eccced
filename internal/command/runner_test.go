package command

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExecRunnerSuccess(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), "sh", "-c", "echo out; echo err >&2")
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 0, res.ExitCode)
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	requireShell(t)

	res, err := NewExecRunner().Run(context.Background(), "sh", "-c", "echo boom >&2; exit 3")
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "sh exited with status 3: boom", err.Error())
}

func TestExecRunnerMissingBinary(t *testing.T) {
	res, err := NewExecRunner().Run(context.Background(), "definitely-not-a-real-command-xyz")
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitCode)

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr))
	assert.ErrorIs(t, err, exec.ErrNotFound)
}

func TestExists(t *testing.T) {
	requireShell(t)
	assert.True(t, Exists("sh"))
	assert.False(t, Exists("nonexistent_command_xyz"))
}
