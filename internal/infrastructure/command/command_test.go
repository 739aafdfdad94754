package command

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExecCapturesOutput(t *testing.T) {
	var streamed bytes.Buffer
	runner := &Exec{Stdout: &streamed}

	res, err := runner.Run(context.Background(), "sh", "-c", "echo hello; echo warn >&2")

	require.NoError(t, err)
	require.Equal(t, "hello", res.Stdout)
	require.Equal(t, "warn", res.Stderr)
	require.Equal(t, "warn", res.PrimaryOutput())
	require.Equal(t, "hello\n", streamed.String())
}

func TestExecReportsExitCode(t *testing.T) {
	runner := &Exec{Env: []string{"ZBX_TEST=1"}}

	res, err := runner.Run(context.Background(), "sh", "-c", `echo "E: lock held ($ZBX_TEST)" >&2; exit 100`)

	require.Error(t, err)
	require.Equal(t, 100, res.ExitCode)

	var cmdErr *Error
	require.True(t, errors.As(err, &cmdErr))
	require.Equal(t, 100, cmdErr.ExitCode)
	require.Contains(t, err.Error(), "E: lock held (1)")
}

func TestPrimaryOutputFallsBackToStdout(t *testing.T) {
	require.Equal(t, "out", Result{Stdout: "out"}.PrimaryOutput())
}
