package main

import (
	"github.com/spf13/cobra"
)

// addStateFlags registers the flags that feed the configuration. Their
// names are the keys of config.FlagKeys.
func addStateFlags(cmd *cobra.Command) {
	f := cmd.PersistentFlags()

	f.String("version", "", "Zabbix major.minor version (default: latest upstream)")
	f.String("server", "", "Zabbix server address")
	f.String("hostname", "", "Proxy hostname as registered on the server")
	f.String("mode", "active", "Proxy mode: active or passive")
	f.Bool("configure-hostname", false, "Also set the system hostname")
	f.BoolP("yes", "y", false, "Answer yes to every confirmation")

	f.String("db-engine", "mysql", "Database engine: mysql or postgresql")
	f.String("db-host", "localhost", "Database host")
	f.Int("db-port", 0, "Database port (default: engine default)")
	f.String("db-name", "zabbix_proxy", "Database name")
	f.String("db-user", "zabbix", "Database user")
	f.String("db-password", "", "Database password")

	f.Bool("configure-network", false, "Apply a static IPv4 address")
	f.String("interface", "", "Network interface for the static address")
	f.String("address", "", "Static IPv4 address")
	f.String("netmask", "", "Netmask in dotted form")
	f.String("gateway", "", "Default gateway")
	f.StringSlice("dns", nil, "DNS servers")
	f.Int("mtu", 0, "Interface MTU")

	f.String("log-level", "info", "Log level: debug, info, warn or error")
	f.String("log-file", "", "Also write JSON logs to this file (default /var/log/zbxproxy.log)")
	f.Bool("history", true, "Keep a git history of rendered configurations")
}
