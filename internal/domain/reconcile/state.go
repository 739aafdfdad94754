package reconcile

import "strings"

// ProxyMode selects how the proxy talks to the Zabbix server.
type ProxyMode string

const (
	ProxyModeActive  ProxyMode = "active"
	ProxyModePassive ProxyMode = "passive"
)

// ConfigValue returns the numeric ProxyMode understood by zabbix_proxy.conf.
func (m ProxyMode) ConfigValue() int {
	if m == ProxyModePassive {
		return 1
	}
	return 0
}

// DatabaseEngine identifies the proxy database backend.
type DatabaseEngine string

const (
	EngineMySQL      DatabaseEngine = "mysql"
	EnginePostgreSQL DatabaseEngine = "postgresql"
)

// PackageSuffix returns the suffix used by upstream proxy package names.
func (e DatabaseEngine) PackageSuffix() string {
	if e == EnginePostgreSQL {
		return "pgsql"
	}
	return "mysql"
}

// Database holds the proxy database coordinates and credentials.
type Database struct {
	Engine   DatabaseEngine
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// IsLocal reports whether the database server runs on this host.
func (d Database) IsLocal() bool {
	switch strings.ToLower(d.Host) {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// Network describes an optional static IPv4 configuration. Nothing is
// changed unless Configure is set.
type Network struct {
	Configure   bool
	Interface   string
	Address     string
	Netmask     string
	Gateway     string
	Nameservers []string
	MTU         int
}

// DNS returns a copy of the configured nameservers.
func (n Network) DNS() []string {
	return append([]string(nil), n.Nameservers...)
}

// DesiredState is the target configuration for one run. It is built once,
// validated, and then only ever passed by value.
type DesiredState struct {
	ZabbixVersion     string
	ServerAddress     string
	ProxyHostname     string
	ProxyMode         ProxyMode
	ConfigureHostname bool
	Database          Database
	Network           Network
}

// Passive reports whether the proxy listens for server connections.
func (d DesiredState) Passive() bool {
	return d.ProxyMode == ProxyModePassive
}

// WithVersion returns a copy of the state targeting another version.
func (d DesiredState) WithVersion(version string) DesiredState {
	d.ZabbixVersion = version
	d.Network.Nameservers = d.Network.DNS()
	return d
}
