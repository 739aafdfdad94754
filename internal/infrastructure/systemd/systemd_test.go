package systemd

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coreos/go-systemd/v22/dbus"
	"github.com/stretchr/testify/require"
)

type fakeBus struct {
	jobs       []string
	jobResult  string
	enabled    []string
	reloads    int
	properties map[string]map[string]interface{}
	closed     bool
}

func (f *fakeBus) run(verb, name string, ch chan<- string) (int, error) {
	f.jobs = append(f.jobs, verb+" "+name)
	result := f.jobResult
	if result == "" {
		result = "done"
	}
	ch <- result
	return len(f.jobs), nil
}

func (f *fakeBus) StartUnitContext(_ context.Context, name, _ string, ch chan<- string) (int, error) {
	return f.run("start", name, ch)
}

func (f *fakeBus) StopUnitContext(_ context.Context, name, _ string, ch chan<- string) (int, error) {
	return f.run("stop", name, ch)
}

func (f *fakeBus) RestartUnitContext(_ context.Context, name, _ string, ch chan<- string) (int, error) {
	return f.run("restart", name, ch)
}

func (f *fakeBus) EnableUnitFilesContext(_ context.Context, files []string, _, _ bool) (bool, []dbus.EnableUnitFileChange, error) {
	f.enabled = append(f.enabled, files...)
	return true, nil, nil
}

func (f *fakeBus) ReloadContext(context.Context) error {
	f.reloads++
	return nil
}

func (f *fakeBus) GetUnitPropertiesContext(_ context.Context, unit string) (map[string]interface{}, error) {
	props, ok := f.properties[unit]
	if !ok {
		return map[string]interface{}{"ActiveState": "inactive", "UnitFileState": ""}, nil
	}
	return props, nil
}

func (f *fakeBus) Close() { f.closed = true }

func newManager(bus *fakeBus) *Manager {
	return New(func(context.Context) (Bus, error) { return bus, nil })
}

func TestUnitName(t *testing.T) {
	require.Equal(t, "zabbix-proxy.service", UnitName("zabbix-proxy"))
	require.Equal(t, "zabbix-proxy.service", UnitName("zabbix-proxy.service"))
}

func TestJobs(t *testing.T) {
	bus := &fakeBus{}
	m := newManager(bus)
	ctx := context.Background()

	require.NoError(t, m.Start(ctx, "zabbix-proxy"))
	require.NoError(t, m.Restart(ctx, "zabbix-proxy"))
	require.NoError(t, m.Stop(ctx, "zabbix-proxy"))
	require.Equal(t, []string{"start zabbix-proxy.service", "restart zabbix-proxy.service", "stop zabbix-proxy.service"}, bus.jobs)

	bus.jobResult = "failed"
	err := m.Restart(ctx, "zabbix-proxy")
	require.ErrorContains(t, err, "restart zabbix-proxy.service: job failed")

	m.Close()
	require.True(t, bus.closed)
}

func TestEnableOnBootReloads(t *testing.T) {
	bus := &fakeBus{}
	require.NoError(t, newManager(bus).EnableOnBoot(context.Background(), "zabbix-proxy"))
	require.Equal(t, []string{"zabbix-proxy.service"}, bus.enabled)
	require.Equal(t, 1, bus.reloads)
}

func TestStateQueries(t *testing.T) {
	started := time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)
	bus := &fakeBus{properties: map[string]map[string]interface{}{
		"zabbix-proxy.service": {
			"ActiveState":          "active",
			"UnitFileState":        "enabled",
			"ActiveEnterTimestamp": uint64(started.UnixMicro()),
		},
	}}
	m := newManager(bus)
	ctx := context.Background()

	active, err := m.IsActive(ctx, "zabbix-proxy")
	require.NoError(t, err)
	require.True(t, active)

	enabled, err := m.IsEnabled(ctx, "zabbix-proxy")
	require.NoError(t, err)
	require.True(t, enabled)

	since, err := m.ActiveSince(ctx, "zabbix-proxy")
	require.NoError(t, err)
	require.True(t, since.Equal(started))

	since, err = m.ActiveSince(ctx, "mysql")
	require.NoError(t, err)
	require.True(t, since.IsZero())
}

func TestDialFailure(t *testing.T) {
	m := New(func(context.Context) (Bus, error) { return nil, errors.New("no such file or directory") })

	_, err := m.IsActive(context.Background(), "zabbix-proxy")
	require.ErrorContains(t, err, "connect to systemd")
}
