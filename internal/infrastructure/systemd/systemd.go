// Package systemd implements the service manager port over the systemd
// D-Bus API.
package systemd

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"

	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
)

// Bus is the subset of the systemd D-Bus connection the manager uses.
type Bus interface {
	StartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	StopUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	RestartUnitContext(ctx context.Context, name, mode string, ch chan<- string) (int, error)
	EnableUnitFilesContext(ctx context.Context, files []string, runtime, force bool) (bool, []dbus.EnableUnitFileChange, error)
	ReloadContext(ctx context.Context) error
	GetUnitPropertiesContext(ctx context.Context, unit string) (map[string]interface{}, error)
	Close()
}

// Dialer opens a bus connection.
type Dialer func(ctx context.Context) (Bus, error)

// SystemBus dials the system D-Bus instance.
func SystemBus(ctx context.Context) (Bus, error) {
	return dbus.NewSystemConnectionContext(ctx)
}

// Manager controls units. The bus connection is opened on first use.
type Manager struct {
	dial Dialer

	mu  sync.Mutex
	bus Bus
}

var _ ports.ServiceManager = (*Manager)(nil)

// New returns a Manager. A nil dial uses the system bus.
func New(dial Dialer) *Manager {
	if dial == nil {
		dial = SystemBus
	}
	return &Manager{dial: dial}
}

// Close releases the bus connection.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bus != nil {
		m.bus.Close()
		m.bus = nil
	}
}

func (m *Manager) conn(ctx context.Context) (Bus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bus != nil {
		return m.bus, nil
	}
	bus, err := m.dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("connect to systemd: %w", err)
	}
	m.bus = bus
	return bus, nil
}

// UnitName adds the .service suffix to bare names.
func UnitName(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	return name + ".service"
}

type jobFunc func(ctx context.Context, name, mode string, ch chan<- string) (int, error)

func (m *Manager) job(ctx context.Context, verb, name string, pick func(Bus) jobFunc) error {
	bus, err := m.conn(ctx)
	if err != nil {
		return err
	}
	unit := UnitName(name)
	done := make(chan string, 1)
	if _, err := pick(bus)(ctx, unit, "replace", done); err != nil {
		return fmt.Errorf("%s %s: %w", verb, unit, err)
	}
	select {
	case result := <-done:
		if result != "done" {
			return fmt.Errorf("%s %s: job %s", verb, unit, result)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) Start(ctx context.Context, name string) error {
	return m.job(ctx, "start", name, func(b Bus) jobFunc { return b.StartUnitContext })
}

func (m *Manager) Stop(ctx context.Context, name string) error {
	return m.job(ctx, "stop", name, func(b Bus) jobFunc { return b.StopUnitContext })
}

func (m *Manager) Restart(ctx context.Context, name string) error {
	return m.job(ctx, "restart", name, func(b Bus) jobFunc { return b.RestartUnitContext })
}

func (m *Manager) EnableOnBoot(ctx context.Context, name string) error {
	bus, err := m.conn(ctx)
	if err != nil {
		return err
	}
	unit := UnitName(name)
	if _, _, err := bus.EnableUnitFilesContext(ctx, []string{unit}, false, true); err != nil {
		return fmt.Errorf("enable %s: %w", unit, err)
	}
	if err := bus.ReloadContext(ctx); err != nil {
		return fmt.Errorf("reload systemd: %w", err)
	}
	return nil
}

func (m *Manager) properties(ctx context.Context, name string) (map[string]interface{}, error) {
	bus, err := m.conn(ctx)
	if err != nil {
		return nil, err
	}
	props, err := bus.GetUnitPropertiesContext(ctx, UnitName(name))
	if err != nil {
		return nil, fmt.Errorf("read properties of %s: %w", UnitName(name), err)
	}
	return props, nil
}

func (m *Manager) IsActive(ctx context.Context, name string) (bool, error) {
	props, err := m.properties(ctx, name)
	if err != nil {
		return false, err
	}
	state, _ := props["ActiveState"].(string)
	return state == "active", nil
}

func (m *Manager) IsEnabled(ctx context.Context, name string) (bool, error) {
	props, err := m.properties(ctx, name)
	if err != nil {
		return false, err
	}
	state, _ := props["UnitFileState"].(string)
	return state == "enabled", nil
}

// ActiveSince converts ActiveEnterTimestamp, in microseconds since the
// epoch, and reports the zero time for inactive units.
func (m *Manager) ActiveSince(ctx context.Context, name string) (time.Time, error) {
	props, err := m.properties(ctx, name)
	if err != nil {
		return time.Time{}, err
	}
	if state, _ := props["ActiveState"].(string); state != "active" {
		return time.Time{}, nil
	}
	usec, _ := props["ActiveEnterTimestamp"].(uint64)
	if usec == 0 {
		return time.Time{}, nil
	}
	return time.UnixMicro(int64(usec)), nil
}
