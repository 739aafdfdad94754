package config

import (
	"time"

	"github.com/spf13/viper"
)

// Configuration keys that callers refer to directly.
const (
	KeyVersion          = "version"
	KeyServer           = "server"
	KeyHostname         = "hostname"
	KeyDatabasePassword = "database.password"
)

// EnvPrefix prefixes every environment variable, e.g. ZBXPROXY_DATABASE_PASSWORD.
const EnvPrefix = "ZBXPROXY"

// Default locations searched when no file is given explicitly.
const (
	DefaultConfigDir = "/etc/zbxproxy"
	DefaultEnvFile   = "/etc/zbxproxy/zbxproxy.env"
	DefaultLogFile   = "/var/log/zbxproxy.log"
	DefaultHistory   = "/var/lib/zbxproxy/history"
)

// defaults registers every key so that environment variables reach
// Unmarshal even when no file mentions them.
var defaults = map[string]any{
	"version":            "",
	"server":             "",
	"hostname":           "",
	"mode":               "active",
	"configure_hostname": false,
	"assume_yes":         false,

	"database.engine":         "mysql",
	"database.host":           "localhost",
	"database.port":           0,
	"database.name":           "zabbix_proxy",
	"database.user":           "zabbix",
	"database.password":       "",
	"database.admin.user":     "",
	"database.admin.password": "",
	"database.admin.socket":   "",

	"network.configure": false,
	"network.interface": "",
	"network.address":   "",
	"network.netmask":   "",
	"network.gateway":   "",
	"network.dns":       []string{},
	"network.mtu":       0,

	"tuning.cache_size":         "",
	"tuning.history_cache_size": "",
	"tuning.start_pollers":      0,
	"tuning.start_pingers":      0,
	"tuning.timeout":            0,
	"tuning.log_slow_queries":   0,
	"tuning.log_file_size":      0,

	"service.timeout":  60 * time.Second,
	"service.interval": time.Second,

	"log.level": "info",
	"log.file":  DefaultLogFile,

	"history.enabled": true,
	"history.dir":     DefaultHistory,

	"upstream.base_url": "",
	"upstream.timeout":  60 * time.Second,
	"upstream.retries":  3,
}

// FlagKeys maps command line flag names to configuration keys.
var FlagKeys = map[string]string{
	"version":            "version",
	"server":             "server",
	"hostname":           "hostname",
	"mode":               "mode",
	"configure-hostname": "configure_hostname",
	"yes":                "assume_yes",
	"db-engine":          "database.engine",
	"db-host":            "database.host",
	"db-port":            "database.port",
	"db-name":            "database.name",
	"db-user":            "database.user",
	"db-password":        "database.password",
	"configure-network":  "network.configure",
	"interface":          "network.interface",
	"address":            "network.address",
	"netmask":            "network.netmask",
	"gateway":            "network.gateway",
	"dns":                "network.dns",
	"mtu":                "network.mtu",
	"log-level":          "log.level",
	"log-file":           "log.file",
	"history":            "history.enabled",
}

func setDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
