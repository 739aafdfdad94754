package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/proxyconf"
)

// Check names as they appear in reports.
const (
	CheckServiceActive = "service-active"
	CheckListener      = "listener"
	CheckDatabase      = "database"
	CheckConfigFile    = "config-file"
)

func pass(name, detail string) reconcile.VerificationResult {
	return reconcile.VerificationResult{Check: name, Status: reconcile.CheckPass, Detail: detail}
}

func fail(name, detail string, err error) reconcile.VerificationResult {
	return reconcile.VerificationResult{Check: name, Status: reconcile.CheckFail, Detail: detail, Err: err}
}

// ServiceActiveCheck waits a bounded time for the proxy unit to be active.
type ServiceActiveCheck struct {
	Services ports.ServiceManager
	Unit     string
	Timeout  time.Duration
	Interval time.Duration
}

func (c ServiceActiveCheck) Name() string { return CheckServiceActive }

func (c ServiceActiveCheck) Run(ctx context.Context, _ reconcile.DesiredState) reconcile.VerificationResult {
	timeout, interval := c.Timeout, c.Interval
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if interval <= 0 {
		interval = time.Second
	}
	if err := WaitForActive(ctx, c.Services, c.Unit, timeout, interval); err != nil {
		return fail(c.Name(), err.Error(), err)
	}
	return pass(c.Name(), c.Unit+" is active")
}

// ListenerCheck confirms the proxy accepts server connections. It only
// applies to passive proxies; active proxies pass without probing.
type ListenerCheck struct {
	Probe ports.PortProbe
	Port  int
}

func (c ListenerCheck) Name() string { return CheckListener }

func (c ListenerCheck) Run(ctx context.Context, desired reconcile.DesiredState) reconcile.VerificationResult {
	port := c.Port
	if port == 0 {
		port = proxyconf.ListenPort
	}
	if !desired.Passive() {
		return pass(c.Name(), "not applicable in active mode")
	}
	listening, err := c.Probe.Listening(ctx, port)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("probe port %d: %v", port, err), err)
	}
	if !listening {
		return fail(c.Name(), fmt.Sprintf("nothing listening on port %d", port), nil)
	}
	return pass(c.Name(), "listening on port "+strconv.Itoa(port))
}

// DatabaseCheck connects with the proxy's own credentials and looks for
// the schema marker table.
type DatabaseCheck struct {
	Connector   ports.DatabaseConnector
	MarkerTable string
}

func (c DatabaseCheck) Name() string { return CheckDatabase }

func (c DatabaseCheck) Run(ctx context.Context, desired reconcile.DesiredState) reconcile.VerificationResult {
	db := desired.Database
	client, err := c.Connector.Connect(ctx, ports.DatabaseLogin{
		Engine:   db.Engine,
		Host:     db.Host,
		Port:     db.Port,
		User:     db.User,
		Password: db.Password,
		Database: db.Name,
	})
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("connect to %s as %s: %v", db.Name, db.User, err), err)
	}
	defer client.Close()

	exists, err := client.TableExists(ctx, db.Name, c.MarkerTable)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("look up table %s: %v", c.MarkerTable, err), err)
	}
	if !exists {
		return fail(c.Name(), fmt.Sprintf("table %s.%s is missing", db.Name, c.MarkerTable), nil)
	}
	return pass(c.Name(), fmt.Sprintf("%s reachable, schema present", db.Name))
}

// ConfigFileCheck re-reads the written configuration and compares the
// identifying keys with the desired state.
type ConfigFileCheck struct {
	Files ports.FileStore
	Path  string
}

func (c ConfigFileCheck) Name() string { return CheckConfigFile }

func (c ConfigFileCheck) Run(ctx context.Context, desired reconcile.DesiredState) reconcile.VerificationResult {
	path := c.Path
	if path == "" {
		path = proxyconf.DefaultPath
	}
	content, exists, err := c.Files.ReadFile(ctx, path)
	if err != nil {
		return fail(c.Name(), fmt.Sprintf("read %s: %v", path, err), err)
	}
	if !exists {
		return fail(c.Name(), path+" does not exist", nil)
	}
	settings, err := proxyconf.Parse(content)
	if err != nil {
		return fail(c.Name(), err.Error(), err)
	}
	mismatches := proxyconf.Mismatches(settings, map[string]string{
		"Server":    desired.ServerAddress,
		"Hostname":  desired.ProxyHostname,
		"ProxyMode": strconv.Itoa(desired.ProxyMode.ConfigValue()),
		"DBName":    desired.Database.Name,
		"DBUser":    desired.Database.User,
	})
	if len(mismatches) > 0 {
		return fail(c.Name(), strings.Join(mismatches, "; "), nil)
	}
	return pass(c.Name(), path+" matches")
}
