// Package apt implements the package manager port with apt-get and
// dpkg-query.
package apt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/command"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Manager drives apt on Debian and Ubuntu hosts.
type Manager struct {
	runner command.Runner
}

var _ ports.PackageManager = (*Manager)(nil)

// New returns a Manager running commands through runner.
func New(runner command.Runner) *Manager {
	return &Manager{runner: runner}
}

// NoninteractiveEnv is the environment apt-get must run with so that no
// package asks questions on the terminal.
func NoninteractiveEnv() []string {
	return []string{"DEBIAN_FRONTEND=noninteractive", "NEEDRESTART_MODE=a"}
}

func (m *Manager) UpdateIndex(ctx context.Context) error {
	if _, err := m.runner.Run(ctx, "apt-get", "update", "-q"); err != nil {
		return fmt.Errorf("update package index: %w", err)
	}
	return nil
}

func (m *Manager) Install(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	args := append([]string{"install", "-y", "-q", "-o", "Dpkg::Options::=--force-confold"}, names...)
	if _, err := m.runner.Run(ctx, "apt-get", args...); err != nil {
		return fmt.Errorf("install %s: %w", strings.Join(names, ", "), err)
	}
	return nil
}

// InstalledVersion asks dpkg for the package status. Packages that are
// known but not fully installed count as absent.
func (m *Manager) InstalledVersion(ctx context.Context, name string) (string, bool, error) {
	res, err := m.runner.Run(ctx, "dpkg-query", "-W", "-f=${Status}\t${Version}", name)
	if err != nil {
		var cmdErr *command.Error
		if errors.As(err, &cmdErr) && cmdErr.ExitCode == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("query package %s: %w", name, err)
	}
	status, version, _ := strings.Cut(res.Stdout, "\t")
	if !strings.HasSuffix(strings.TrimSpace(status), "install ok installed") {
		return "", false, nil
	}
	return strings.TrimSpace(version), true, nil
}
