package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports/portstest"
	"github.com/alexisbeaulieu97/zbxproxy/internal/proxyconf"
)

func testDesired() reconcile.DesiredState {
	return reconcile.DesiredState{
		ZabbixVersion: "7.0",
		ServerAddress: "192.168.1.1",
		ProxyHostname: "zabbix-proxy",
		ProxyMode:     reconcile.ProxyModeActive,
		Database: reconcile.Database{
			Engine:   reconcile.EngineMySQL,
			Host:     "localhost",
			Name:     "zabbix_proxy",
			User:     "zabbix",
			Password: "secret",
		},
	}
}

func TestWaitForActive_ReturnsOnceActive(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Services["zabbix-proxy"] = &portstest.Service{Active: true}

	err := WaitForActive(context.Background(), sys, "zabbix-proxy", time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	require.Equal(t, 1, sys.CallCount("is-active"))
}

func TestWaitForActive_GivesUpAfterTimeout(t *testing.T) {
	sys := portstest.NewSystem()

	err := WaitForActive(context.Background(), sys, "zabbix-proxy", 60*time.Millisecond, 5*time.Millisecond)
	require.ErrorIs(t, err, ErrServiceInactive)
	require.Greater(t, sys.CallCount("is-active"), 1)
}

func TestServiceActiveCheck(t *testing.T) {
	sys := portstest.NewSystem()
	check := ServiceActiveCheck{Services: sys, Unit: "zabbix-proxy", Timeout: 30 * time.Millisecond, Interval: 5 * time.Millisecond}

	require.False(t, check.Run(context.Background(), testDesired()).Passed())

	sys.Services["zabbix-proxy"] = &portstest.Service{Active: true}
	result := check.Run(context.Background(), testDesired())
	require.True(t, result.Passed())
	require.Equal(t, CheckServiceActive, result.Check)
}

func TestListenerCheck_OnlyProbesPassiveProxies(t *testing.T) {
	sys := portstest.NewSystem()
	check := ListenerCheck{Probe: sys}

	result := check.Run(context.Background(), testDesired())
	require.True(t, result.Passed())
	require.Zero(t, sys.CallCount("listening"))

	passive := testDesired()
	passive.ProxyMode = reconcile.ProxyModePassive
	require.False(t, check.Run(context.Background(), passive).Passed())

	sys.ListeningPorts[proxyconf.ListenPort] = true
	require.True(t, check.Run(context.Background(), passive).Passed())
}

func TestDatabaseCheck(t *testing.T) {
	sys := portstest.NewSystem()
	check := DatabaseCheck{Connector: sys, MarkerTable: "dbversion"}

	result := check.Run(context.Background(), testDesired())
	require.False(t, result.Passed())
	require.Contains(t, result.Detail, "zabbix_proxy.dbversion is missing")

	sys.Tables["zabbix_proxy"] = map[string]bool{"dbversion": true}
	require.True(t, check.Run(context.Background(), testDesired()).Passed())

	sys.Fail["connect"] = errors.New("Access denied for user 'zabbix'")
	result = check.Run(context.Background(), testDesired())
	require.False(t, result.Passed())
	require.Contains(t, result.Detail, "Access denied")
}

func TestConfigFileCheck(t *testing.T) {
	sys := portstest.NewSystem()
	check := ConfigFileCheck{Files: sys}

	result := check.Run(context.Background(), testDesired())
	require.False(t, result.Passed())
	require.Contains(t, result.Detail, "does not exist")

	content, err := proxyconf.Render(testDesired(), proxyconf.Options{})
	require.NoError(t, err)
	sys.Files[proxyconf.DefaultPath] = portstest.File{Data: content}
	require.True(t, check.Run(context.Background(), testDesired()).Passed())

	other := testDesired()
	other.ServerAddress = "zabbix.example.com"
	result = check.Run(context.Background(), other)
	require.False(t, result.Passed())
	require.Contains(t, result.Detail, "Server")
}

func TestVerifier_RunsEveryCheck(t *testing.T) {
	sys := portstest.NewSystem()
	logger := &portstest.Logger{}
	verifier := NewVerifier(logger,
		ListenerCheck{Probe: sys},
		DatabaseCheck{Connector: sys, MarkerTable: "dbversion"},
	)

	summary := verifier.Verify(context.Background(), testDesired())

	require.False(t, summary.OK())
	require.Equal(t, 1, summary.Passed)
	require.Equal(t, []string{CheckDatabase}, summary.FailedChecks())
	require.Equal(t, []string{CheckListener, CheckDatabase}, verifier.Checks())
	require.True(t, logger.Has("warn", "verification check failed"))
	require.Error(t, summary.Err())
}
