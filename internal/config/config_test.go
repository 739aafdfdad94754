package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const sampleYAML = `
version: "7.0"
server: 192.168.1.1
hostname: zabbix-proxy
mode: passive
database:
  engine: postgresql
  name: zabbix_proxy
  password: from-file
  admin:
    user: postgres
network:
  configure: true
  interface: eth0
  address: 192.168.1.20
  netmask: 255.255.255.0
  dns: [1.1.1.1]
tuning:
  start_pollers: 10
service:
  timeout: 90s
`

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "zbxproxy.yaml", sampleYAML)

	cfg, err := Load(LoadOptions{File: path, EnvFile: writeFile(t, "empty.env", "")})
	require.NoError(t, err)
	require.Equal(t, path, cfg.Source)
	require.NoError(t, cfg.Validate())

	d := cfg.Desired()
	require.Equal(t, "7.0", d.ZabbixVersion)
	require.Equal(t, reconcile.ProxyModePassive, d.ProxyMode)
	require.Equal(t, reconcile.EnginePostgreSQL, d.Database.Engine)
	require.Equal(t, "localhost", d.Database.Host)
	require.Equal(t, "zabbix", d.Database.User)
	require.Equal(t, "from-file", d.Database.Password)
	require.True(t, d.Network.Configure)
	require.Equal(t, []string{"1.1.1.1"}, d.Network.Nameservers)

	s := cfg.Settings()
	require.Equal(t, "postgres", s.Admin.User)
	require.Equal(t, 10, s.Render.Tuning.StartPollers)
	require.Equal(t, 90*time.Second, s.ServiceTimeout)
	require.Equal(t, time.Second, s.ServiceInterval)
}

func TestLoadPrecedence(t *testing.T) {
	path := writeFile(t, "zbxproxy.yaml", sampleYAML)
	envFile := writeFile(t, "zbxproxy.env", "ZBXPROXY_DATABASE_PASSWORD=from-dotenv\nZBXPROXY_SERVER=10.9.9.9\n")
	t.Setenv("ZBXPROXY_SERVER", "10.0.0.7")
	t.Setenv("ZBXPROXY_DATABASE_PASSWORD", "")
	require.NoError(t, os.Unsetenv("ZBXPROXY_DATABASE_PASSWORD"))
	t.Setenv("ZBXPROXY_NETWORK_DNS", "8.8.8.8,9.9.9.9")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("hostname", "", "")
	flags.String("db-engine", "", "")
	require.NoError(t, flags.Parse([]string{"--hostname", "proxy-from-flag"}))

	cfg, err := Load(LoadOptions{File: path, EnvFile: envFile, Flags: flags})
	require.NoError(t, err)

	// environment beats the dotenv file, which never overrides
	require.Equal(t, "10.0.0.7", cfg.Server)
	require.Equal(t, "from-dotenv", cfg.Database.Password)
	require.Equal(t, "proxy-from-flag", cfg.Hostname)
	// unset flags keep the file value
	require.Equal(t, "postgresql", cfg.Database.Engine)
	require.Equal(t, []string{"8.8.8.8", "9.9.9.9"}, cfg.Network.DNS)
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(LoadOptions{EnvFile: writeFile(t, "empty.env", "")})
	require.NoError(t, err)
	require.Equal(t, "active", cfg.Mode)
	require.Equal(t, "mysql", cfg.Database.Engine)
	require.Equal(t, "info", cfg.Log.Level)
	require.Equal(t, DefaultLogFile, cfg.Log.File)
	require.True(t, cfg.History.Enabled)
	require.Equal(t, []string{KeyServer, KeyHostname, KeyDatabasePassword}, cfg.Missing())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
	require.Equal(t, zerrors.ExitInvalidInput, zerrors.ExitCode(err))
}

func TestValidateReportsConfigKeys(t *testing.T) {
	path := writeFile(t, "zbxproxy.yaml", `
version: "7"
server: "bad server"
hostname: -proxy
mode: sideways
database:
  name: bad-name
  password: secret
network:
  configure: true
  address: 10.0.0.300
  dns: [1.1.1.1, nope]
`)
	cfg, err := Load(LoadOptions{File: path, EnvFile: writeFile(t, "empty.env", "")})
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	for _, want := range []string{
		"version", "server", "hostname", "must be one of: active, passive",
		"database.name", "network.address", "network.dns[1]",
		"network.interface", "network.netmask",
	} {
		require.Contains(t, msg, want)
	}
	require.Equal(t, zerrors.ExitInvalidInput, zerrors.ExitCode(err))
}

func TestSetFillsPromptedKeys(t *testing.T) {
	cfg := &Config{}
	cfg.Set(KeyServer, "10.0.0.1")
	cfg.Set(KeyHostname, "proxy")
	cfg.Set(KeyDatabasePassword, "secret")
	cfg.Set(KeyVersion, "7.0")

	require.Empty(t, cfg.Missing())
	require.Equal(t, "7.0", cfg.Version)
}
