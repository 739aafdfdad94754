package steps

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports/portstest"
	"github.com/alexisbeaulieu97/zbxproxy/internal/proxyconf"
)

func desiredState() reconcile.DesiredState {
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
			Password: "zabbix",
		},
	}
}

func testSettings() Settings {
	s := DefaultSettings()
	s.ServiceTimeout = 50 * time.Millisecond
	s.ServiceInterval = 5 * time.Millisecond
	return s
}

func depsFor(sys *portstest.System) Deps {
	return Deps{
		Packages:   sys,
		Repository: sys,
		Databases:  sys,
		Services:   sys,
		Network:    sys,
		Hostname:   sys,
		Host:       sys,
		Probe:      sys,
		Dirs:       sys,
		Files:      sys,
		History:    sys,
		Logger:     &portstest.Logger{},
	}
}

func stepNamed(t *testing.T, sys *portstest.System, name string) ports.Step {
	t.Helper()
	for _, step := range Canonical(depsFor(sys), testSettings()) {
		if step.Name() == name {
			return step
		}
	}
	t.Fatalf("no step %q", name)
	return nil
}

// converge evaluates a step and applies it when needed.
func converge(t *testing.T, step ports.Step, desired reconcile.DesiredState) (*reconcile.Evaluation, reconcile.StepResult) {
	t.Helper()
	eval, err := step.Evaluate(context.Background(), desired)
	require.NoError(t, err)
	if eval.Skipped() {
		return eval, reconcile.Skipped(step.Name(), eval.SkipReason)
	}
	if eval.Satisfied {
		return eval, reconcile.AlreadySatisfied(step.Name(), eval.Message)
	}
	return eval, step.Apply(context.Background(), desired, eval)
}

func TestCanonicalOrder(t *testing.T) {
	var names []string
	for _, step := range Canonical(depsFor(portstest.NewSystem()), testSettings()) {
		names = append(names, step.Name())
	}
	require.Equal(t, Names()[:len(Names())-1], names)
	require.Equal(t, Verify, Names()[len(Names())-1])
}

func TestFatalPolicy(t *testing.T) {
	sys := portstest.NewSystem()
	desired := desiredState()
	optedIn := desiredState()
	optedIn.Network.Configure = true
	optedIn.ConfigureHostname = true

	fatal := map[string]bool{}
	for _, step := range Canonical(depsFor(sys), testSettings()) {
		fatal[step.Name()] = step.Fatal(desired)
		if step.Name() == Network || step.Name() == Hostname {
			require.True(t, step.Fatal(optedIn), step.Name())
		}
	}
	require.Equal(t, map[string]bool{
		Requirements: false, Network: false, Hostname: false, Repository: true,
		Database: true, Directories: true, Config: true, Service: true,
	}, fatal)
}

func TestRequirements_InstallsMissingPrerequisites(t *testing.T) {
	sys := portstest.NewSystem()
	step := stepNamed(t, sys, Requirements)

	eval, result := converge(t, step, desiredState())

	require.Empty(t, eval.Warnings)
	require.Contains(t, eval.Message, "default-mysql-server")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Contains(t, sys.Packages, "gnupg")
	require.Contains(t, sys.Packages, "default-mysql-server")

	_, result = converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
}

func TestRequirements_RemotePostgresNeedsNoServer(t *testing.T) {
	sys := portstest.NewSystem()
	desired := desiredState()
	desired.Database.Engine = reconcile.EnginePostgreSQL
	desired.Database.Host = "db.example.com"

	_, result := converge(t, stepNamed(t, sys, Requirements), desired)

	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.NotContains(t, sys.Packages, "postgresql")
	require.NotContains(t, sys.Packages, "default-mysql-server")
}

func TestRequirements_LowResourcesWarn(t *testing.T) {
	sys := portstest.NewSystem()
	sys.HostResources = ports.Resources{TotalMemoryBytes: 512 << 20, FreeDiskBytes: 2 << 30}

	eval, err := stepNamed(t, sys, Requirements).Evaluate(context.Background(), desiredState())

	require.NoError(t, err)
	require.Len(t, eval.Warnings, 2)
	require.Contains(t, eval.Warnings[0], "512MB")
	require.Contains(t, eval.Warnings[1], "2.0GB free on /")
}

func TestRequirements_InstallFailureIsReported(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Fail["install"] = errors.New("E: Could not get lock /var/lib/dpkg/lock-frontend")

	_, result := converge(t, stepNamed(t, sys, Requirements), desiredState())

	require.True(t, result.IsFailure())
	require.Contains(t, result.Err.Error(), "Could not get lock")
}

func TestNetwork(t *testing.T) {
	sys := portstest.NewSystem()
	step := stepNamed(t, sys, Network)

	eval, result := converge(t, step, desiredState())
	require.True(t, eval.Skipped())
	require.Equal(t, reconcile.OutcomeSkipped, result.Outcome)
	require.Zero(t, sys.CallCount("current-address"))

	desired := desiredState()
	desired.Network = reconcile.Network{
		Configure:   true,
		Interface:   "eth0",
		Address:     "192.168.1.50",
		Netmask:     "255.255.255.0",
		Gateway:     "192.168.1.1",
		Nameservers: []string{"1.1.1.1"},
	}
	eval, result = converge(t, step, desired)
	require.Contains(t, eval.Message, "eth0 has 10.0.2.15/24, want 192.168.1.50/24")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Equal(t, "192.168.1.50/24", sys.Interfaces["eth0"])

	_, result = converge(t, step, desired)
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
}

func TestNetwork_ApplyFailure(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Fail["apply-network"] = errors.New("netplan apply: exit status 1")
	desired := desiredState()
	desired.Network = reconcile.Network{Configure: true, Interface: "eth1", Address: "10.1.1.2", Netmask: "255.255.0.0"}

	eval, result := converge(t, stepNamed(t, sys, Network), desired)

	require.Contains(t, eval.Message, "no IPv4 address")
	require.True(t, result.IsFailure())
	require.Contains(t, result.Reason, "netplan apply")
}

func TestHostname(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Files["/etc/hosts"] = portstest.File{Data: []byte("127.0.0.1\tlocalhost\n127.0.1.1\tdebian\n")}
	step := stepNamed(t, sys, Hostname)

	_, result := converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeSkipped, result.Outcome)

	desired := desiredState()
	desired.ConfigureHostname = true
	_, result = converge(t, step, desired)
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Equal(t, "zabbix-proxy", sys.Hostname)
	require.Equal(t, "127.0.0.1\tlocalhost\n127.0.1.1\tzabbix-proxy\n", string(sys.Files["/etc/hosts"].Data))

	_, result = converge(t, step, desired)
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
}

func TestHostname_FixesHostsEntryOnly(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Hostname = "zabbix-proxy"
	desired := desiredState()
	desired.ConfigureHostname = true

	eval, result := converge(t, stepNamed(t, sys, Hostname), desired)

	require.Contains(t, eval.Message, "/etc/hosts lacks zabbix-proxy")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Zero(t, sys.CallCount("set-hostname"))
	require.Equal(t, "127.0.1.1\tzabbix-proxy\n", string(sys.Files["/etc/hosts"].Data))
}

func TestRepository(t *testing.T) {
	sys := portstest.NewSystem()
	step := stepNamed(t, sys, Repository)

	eval, result := converge(t, step, desiredState())
	require.Contains(t, eval.Diff, "Would register Zabbix 7.0 repository")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome, result.Reason)
	require.Equal(t, "7.0", sys.RepoVersion)
	require.Equal(t, "1:7.0.5-1+debian12", sys.Packages["zabbix-proxy-mysql"])
	require.Contains(t, sys.Packages, "zabbix-sql-scripts")

	sys.ResetCalls()
	_, result = converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
	require.Zero(t, sys.CallCount("install"))

	upgrade := desiredState()
	upgrade.ZabbixVersion = "7.2"
	eval, result = converge(t, step, upgrade)
	require.Contains(t, eval.Message, "repository registered for 7.0")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Equal(t, "7.2", reconcile.ReleaseOf(sys.Packages["zabbix-proxy-mysql"]))
}

func TestRepository_InstallFailureKeepsRawError(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Fail["register-repository"] = errors.New("dpkg: error processing archive zabbix-release_latest_7.0+debian12_all.deb")

	_, result := converge(t, stepNamed(t, sys, Repository), desiredState())

	require.True(t, result.IsFailure())
	require.Contains(t, result.Err.Error(), "zabbix-release_latest_7.0")
	require.Zero(t, sys.CallCount("install"))
}

func TestDatabase_ProvisionsOnce(t *testing.T) {
	sys := portstest.NewSystem()
	_, _ = converge(t, stepNamed(t, sys, Repository), desiredState())
	step := stepNamed(t, sys, Database)

	eval, result := converge(t, step, desiredState())
	require.Contains(t, eval.Message, "zabbix_proxy.dbversion missing")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome, result.Reason)
	require.Equal(t, 1, sys.StatementCount("CREATE DATABASE IF NOT EXISTS `zabbix_proxy`"))
	require.Equal(t, 1, sys.StatementCount("CREATE USER IF NOT EXISTS 'zabbix'@'localhost' IDENTIFIED BY 'zabbix'"))
	require.Equal(t, 1, sys.StatementCount("CREATE TABLE `dbversion`"))
	require.Equal(t, 1, sys.StatementCount("log_bin_trust_function_creators = 0"))
	require.True(t, sys.Tables["zabbix_proxy"]["dbversion"])

	_, result = converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
	require.Equal(t, 1, sys.StatementCount("CREATE USER"))
	require.Equal(t, 1, sys.StatementCount("CREATE TABLE `dbversion`"))
}

func TestDatabase_MissingSchemaFails(t *testing.T) {
	sys := portstest.NewSystem()

	_, result := converge(t, stepNamed(t, sys, Database), desiredState())

	require.True(t, result.IsFailure())
	require.Contains(t, result.Reason, "/usr/share/zabbix-sql-scripts/mysql/proxy.sql not found")
}

func TestDatabase_ConnectFailure(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Fail["connect"] = errors.New("dial unix /run/mysqld/mysqld.sock: connect: no such file or directory")

	_, err := stepNamed(t, sys, Database).Evaluate(context.Background(), desiredState())

	require.Error(t, err)
	require.Contains(t, err.Error(), "mysqld.sock")
}

func TestDatabase_PostgreSQL(t *testing.T) {
	sys := portstest.NewSystem()
	desired := desiredState()
	desired.Database.Engine = reconcile.EnginePostgreSQL
	desired.Database.Password = "it's"
	_, _ = converge(t, stepNamed(t, sys, Repository), desired)

	_, result := converge(t, stepNamed(t, sys, Database), desired)

	require.Equal(t, reconcile.OutcomeApplied, result.Outcome, result.Reason)
	require.Equal(t, 1, sys.StatementCount(`CREATE ROLE "zabbix" LOGIN PASSWORD 'it''s'`))
	require.Equal(t, 1, sys.StatementCount(`CREATE DATABASE "zabbix_proxy" OWNER "zabbix"`))
	require.Equal(t, 1, sys.StatementCount(`SET ROLE "zabbix"`))
	require.True(t, sys.Tables["zabbix_proxy"]["dbversion"])
}

func TestDatabase_MySQLQuotesWithoutBackslashes(t *testing.T) {
	sys := portstest.NewSystem()
	desired := desiredState()
	desired.Database.Password = "it's"
	_, _ = converge(t, stepNamed(t, sys, Repository), desired)

	_, result := converge(t, stepNamed(t, sys, Database), desired)

	require.Equal(t, reconcile.OutcomeApplied, result.Outcome, result.Reason)
	require.Equal(t, 1, sys.StatementCount(`IDENTIFIED BY 'it''s'`))
	require.Equal(t, "'a''b'", mysqlString("a'b"))
}

func TestDatabase_MySQLRefusesBackslash(t *testing.T) {
	sys := portstest.NewSystem()
	desired := desiredState()
	desired.Database.Password = `secret\`
	_, _ = converge(t, stepNamed(t, sys, Repository), desired)

	_, result := converge(t, stepNamed(t, sys, Database), desired)

	require.True(t, result.IsFailure())
	require.Contains(t, result.Reason, "backslash")
	require.Zero(t, sys.StatementCount("CREATE USER"))
}

func TestDatabase_AdminLogin(t *testing.T) {
	step := &databaseStep{settings: testSettings()}
	local := desiredState().Database

	login := step.adminLogin(local, "")
	require.Equal(t, "root", login.User)
	require.Equal(t, "/run/mysqld/mysqld.sock", login.Socket)
	require.Empty(t, login.Host)

	remote := local
	remote.Engine = reconcile.EnginePostgreSQL
	remote.Host = "db.example.com"
	remote.Port = 5433
	step.settings.Admin = AdminLogin{User: "admin", Password: "pw"}
	login = step.adminLogin(remote, "zabbix_proxy")
	require.Equal(t, "admin", login.User)
	require.Equal(t, "db.example.com", login.Host)
	require.Equal(t, 5433, login.Port)
	require.Empty(t, login.Socket)
	require.Equal(t, "zabbix_proxy", login.Database)
}

func TestDirectories(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Dirs["/var/log/zabbix"] = ports.DirectoryState{Exists: true, Mode: 0o755, Owner: "root", Group: "root"}
	step := stepNamed(t, sys, Directories)

	eval, result := converge(t, step, desiredState())
	require.Contains(t, eval.Message, "/var/log/zabbix owned by root:root")
	require.Contains(t, eval.Message, "/run/zabbix missing")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Equal(t, 3, sys.CallCount("ensure-dir"))
	require.Equal(t, ports.DirectoryState{Exists: true, Mode: 0o755, Owner: "zabbix", Group: "zabbix"}, sys.Dirs["/var/lib/zabbix"])

	_, result = converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
}

func TestConfig(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Files[proxyconf.DefaultPath] = portstest.File{Data: []byte("Server=127.0.0.1\nDBPassword=old-secret\n")}
	step := stepNamed(t, sys, Config)

	eval, result := converge(t, step, desiredState())
	require.Contains(t, eval.Diff, "-Server=127.0.0.1")
	require.Contains(t, eval.Diff, "+Server=192.168.1.1")
	require.NotContains(t, eval.Diff, "old-secret")
	require.NotContains(t, eval.Diff, "DBPassword=zabbix")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.Len(t, sys.History, 1)
	require.Contains(t, sys.History[0], "zabbix-proxy")

	want, err := proxyconf.Render(desiredState(), testSettings().Render)
	require.NoError(t, err)
	require.Equal(t, want, sys.Files[proxyconf.DefaultPath].Data)

	_, result = converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)
	require.Len(t, sys.History, 1)
}

func TestConfig_NewFileReadableByProxyGroup(t *testing.T) {
	sys := portstest.NewSystem()
	step := stepNamed(t, sys, Config)

	_, result := converge(t, step, desiredState())

	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	file := sys.Files[proxyconf.DefaultPath]
	require.Equal(t, os.FileMode(0o640), file.Mode)
	require.Equal(t, "root", file.Owner)
	require.Equal(t, "zabbix", file.Group)
}

func TestConfig_ChownFailure(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Fail["chown-file"] = errors.New("operation not permitted")
	step := stepNamed(t, sys, Config)

	_, result := converge(t, step, desiredState())

	require.Equal(t, reconcile.OutcomeFailed, result.Outcome)
	require.ErrorContains(t, result.Err, "operation not permitted")
	require.Empty(t, sys.History)
}

func TestConfig_HistoryFailureDoesNotFailStep(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Fail["history"] = errors.New("repository locked")
	deps := depsFor(sys)
	logger := &portstest.Logger{}
	deps.Logger = logger

	var step ports.Step
	for _, s := range Canonical(deps, testSettings()) {
		if s.Name() == Config {
			step = s
		}
	}
	_, result := converge(t, step, desiredState())

	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
	require.True(t, logger.Has("warn", "configuration history"))
}

func TestService(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Files[proxyconf.DefaultPath] = portstest.File{Data: []byte("x"), ModTime: sys.Now()}
	step := stepNamed(t, sys, Service)

	eval, result := converge(t, step, desiredState())
	require.Contains(t, eval.Message, "zabbix-proxy is not active")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome, result.Reason)
	require.True(t, sys.Services["zabbix-proxy"].Enabled)

	_, result = converge(t, step, desiredState())
	require.Equal(t, reconcile.OutcomeAlreadySatisfied, result.Outcome)

	sys.Files[proxyconf.DefaultPath] = portstest.File{Data: []byte("y"), ModTime: sys.Now().Add(time.Minute)}
	eval, result = converge(t, step, desiredState())
	require.Contains(t, eval.Message, "started before the last configuration change")
	require.Equal(t, reconcile.OutcomeApplied, result.Outcome)
}

func TestService_NeverActiveFails(t *testing.T) {
	sys := portstest.NewSystem()
	sys.Services["zabbix-proxy"] = &portstest.Service{StayInactive: true}

	_, result := converge(t, stepNamed(t, sys, Service), desiredState())

	require.True(t, result.IsFailure())
	require.Contains(t, result.Reason, "did not become active")
}

func TestChecks(t *testing.T) {
	var names []string
	for _, c := range Checks(depsFor(portstest.NewSystem()), testSettings()) {
		names = append(names, c.Name())
	}
	require.Equal(t, []string{"service-active", "listener", "database", "config-file"}, names)
}
