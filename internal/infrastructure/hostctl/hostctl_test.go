package hostctl

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/command"
)

func TestCurrentHostname(t *testing.T) {
	runner := &command.Fake{Handle: func(string) (command.Result, error) {
		return command.Result{Stdout: "zbx-proxy-01\n"}, nil
	}}

	name, err := New(runner).CurrentHostname(context.Background())
	require.NoError(t, err)
	require.Equal(t, "zbx-proxy-01", name)
	require.Equal(t, []string{"hostnamectl --static"}, runner.Lines)
}

func TestCurrentHostnameFallsBackToKernel(t *testing.T) {
	runner := &command.Fake{Handle: func(line string) (command.Result, error) {
		return command.Failure(line, 1, "System has not been booted with systemd")
	}}
	want, err := os.Hostname()
	require.NoError(t, err)

	name, err := New(runner).CurrentHostname(context.Background())
	require.NoError(t, err)
	require.Equal(t, want, name)
}

func TestSetHostname(t *testing.T) {
	runner := &command.Fake{}
	require.NoError(t, New(runner).SetHostname(context.Background(), "zbx-proxy-01"))
	require.Equal(t, []string{"hostnamectl set-hostname zbx-proxy-01"}, runner.Lines)

	runner.Handle = func(line string) (command.Result, error) {
		return command.Failure(line, 1, "Could not set static hostname: Access denied")
	}
	err := New(runner).SetHostname(context.Background(), "zbx-proxy-01")
	require.ErrorContains(t, err, "set hostname zbx-proxy-01")
}
