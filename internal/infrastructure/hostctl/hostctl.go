// Package hostctl implements the hostname port with hostnamectl.
package hostctl

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/command"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Hostnames reads and sets the static hostname.
type Hostnames struct {
	runner command.Runner
}

var _ ports.HostnameConfigurator = (*Hostnames)(nil)

func New(runner command.Runner) *Hostnames {
	return &Hostnames{runner: runner}
}

// CurrentHostname prefers the static hostname and falls back to the kernel
// hostname when hostnamectl is unavailable.
func (h *Hostnames) CurrentHostname(ctx context.Context) (string, error) {
	res, err := h.runner.Run(ctx, "hostnamectl", "--static")
	if err == nil {
		if name := strings.TrimSpace(res.Stdout); name != "" {
			return name, nil
		}
	}
	name, hostErr := os.Hostname()
	if hostErr != nil {
		if err != nil {
			return "", fmt.Errorf("read hostname: %w", err)
		}
		return "", fmt.Errorf("read hostname: %w", hostErr)
	}
	return name, nil
}

func (h *Hostnames) SetHostname(ctx context.Context, name string) error {
	if _, err := h.runner.Run(ctx, "hostnamectl", "set-hostname", name); err != nil {
		return fmt.Errorf("set hostname %s: %w", name, err)
	}
	return nil
}
