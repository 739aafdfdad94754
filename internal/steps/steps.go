// Package steps implements the canonical reconciliation steps that turn a
// Debian host into a running Zabbix proxy. Every step reaches the system
// only through the collaborator ports.
package steps

import (
	"os"
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/proxyconf"
)

// Step names in canonical order.
const (
	Requirements = "requirements"
	Network      = "network"
	Hostname     = "hostname"
	Repository   = "repository"
	Database     = "database"
	Directories  = "directories"
	Config       = "config"
	Service      = "service"
	Verify       = "verify"
)

// Names lists every step in execution order, ending with verification.
func Names() []string {
	return []string{Requirements, Network, Hostname, Repository, Database, Directories, Config, Service, Verify}
}

// Deps are the collaborators the steps act through. History and Logger are
// optional.
type Deps struct {
	Packages   ports.PackageManager
	Repository ports.RepositoryRegistrar
	Databases  ports.DatabaseConnector
	Services   ports.ServiceManager
	Network    ports.NetworkConfigurator
	Hostname   ports.HostnameConfigurator
	Host       ports.HostInspector
	Probe      ports.PortProbe
	Dirs       ports.DirectoryManager
	Files      ports.FileStore
	History    ports.ConfigHistory
	Logger     ports.Logger
}

// AdminLogin holds the privileged database account used for provisioning.
// Empty fields fall back to the engine's packaged defaults.
type AdminLogin struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Socket   string `mapstructure:"socket"`
}

// Settings are the host-level constants the steps work with.
type Settings struct {
	MinMemoryBytes uint64
	MinDiskBytes   uint64
	DiskPath       string
	BasePackages   []string

	HostsPath   string
	NetplanPath string

	SchemaDir   string
	MarkerTable string
	Admin       AdminLogin

	Directories []string
	Owner       string
	Group       string
	DirMode     os.FileMode

	ConfigPath  string
	ConfigMode  os.FileMode
	ConfigOwner string
	Render      proxyconf.Options

	ServiceUnit     string
	ServiceTimeout  time.Duration
	ServiceInterval time.Duration
}

// DefaultSettings returns the layout used by the upstream Debian packages.
func DefaultSettings() Settings {
	return Settings{
		MinMemoryBytes:  1024 << 20,
		MinDiskBytes:    5 << 30,
		DiskPath:        "/",
		BasePackages:    []string{"wget", "curl", "gnupg", "ca-certificates"},
		HostsPath:       "/etc/hosts",
		SchemaDir:       "/usr/share/zabbix-sql-scripts",
		MarkerTable:     "dbversion",
		Directories:     []string{"/var/log/zabbix", "/run/zabbix", "/var/lib/zabbix"},
		Owner:           "zabbix",
		Group:           "zabbix",
		DirMode:         0o755,
		ConfigPath:      proxyconf.DefaultPath,
		ConfigMode:      0o640,
		ConfigOwner:     "root",
		Render:          proxyconf.DefaultOptions(),
		ServiceUnit:     "zabbix-proxy",
		ServiceTimeout:  60 * time.Second,
		ServiceInterval: time.Second,
	}
}

// Canonical builds the eight mutating steps in their fixed order.
func Canonical(deps Deps, settings Settings) []ports.Step {
	return []ports.Step{
		&requirementsStep{packages: deps.Packages, host: deps.Host, settings: settings},
		&networkStep{network: deps.Network},
		&hostnameStep{hostname: deps.Hostname, files: deps.Files, hostsPath: settings.HostsPath},
		&repositoryStep{packages: deps.Packages, repository: deps.Repository},
		&databaseStep{connector: deps.Databases, files: deps.Files, settings: settings},
		&directoriesStep{dirs: deps.Dirs, settings: settings},
		&configStep{files: deps.Files, history: deps.History, logger: deps.Logger, settings: settings},
		&serviceStep{services: deps.Services, files: deps.Files, settings: settings},
	}
}

// Checks builds the post-run verification checks.
func Checks(deps Deps, settings Settings) []engine.Check {
	return []engine.Check{
		engine.ServiceActiveCheck{
			Services: deps.Services,
			Unit:     settings.ServiceUnit,
			Timeout:  settings.ServiceTimeout,
			Interval: settings.ServiceInterval,
		},
		engine.ListenerCheck{Probe: deps.Probe, Port: proxyconf.ListenPort},
		engine.DatabaseCheck{Connector: deps.Databases, MarkerTable: settings.MarkerTable},
		engine.ConfigFileCheck{Files: deps.Files, Path: settings.ConfigPath},
	}
}

// ProxyPackages returns the packages that make up the proxy for an engine.
func ProxyPackages(engine reconcile.DatabaseEngine) []string {
	return []string{"zabbix-proxy-" + engine.PackageSuffix(), "zabbix-sql-scripts"}
}
