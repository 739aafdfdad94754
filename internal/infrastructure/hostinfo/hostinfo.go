//go:build linux

// Package hostinfo reads host capacity and probes local listeners.
package hostinfo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Inspector reads memory and disk capacity from the kernel.
type Inspector struct{}

var _ ports.HostInspector = Inspector{}

func (Inspector) Resources(_ context.Context, path string) (ports.Resources, error) {
	var info unix.Sysinfo_t
	if err := unix.Sysinfo(&info); err != nil {
		return ports.Resources{}, fmt.Errorf("sysinfo: %w", err)
	}
	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return ports.Resources{}, fmt.Errorf("statfs %s: %w", path, err)
	}
	return ports.Resources{
		TotalMemoryBytes: uint64(info.Totalram) * uint64(info.Unit),
		FreeDiskBytes:    fs.Bavail * uint64(fs.Bsize),
	}, nil
}

// Probe dials loopback to find TCP listeners.
type Probe struct {
	Host    string
	Timeout time.Duration
}

var _ ports.PortProbe = Probe{}

func (p Probe) Listening(ctx context.Context, port int) (bool, error) {
	host := p.Host
	if host == "" {
		host = "127.0.0.1"
	}
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err == nil {
		conn.Close()
		return true, nil
	}
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return false, nil
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return false, nil
	}
	return false, fmt.Errorf("probe %s:%d: %w", host, port, err)
}
