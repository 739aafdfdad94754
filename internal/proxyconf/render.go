// Package proxyconf renders and parses zabbix_proxy.conf.
package proxyconf

import (
	"bytes"
	"fmt"
	"regexp"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
)

const (
	// DefaultPath is where the proxy package expects its configuration.
	DefaultPath = "/etc/zabbix/zabbix_proxy.conf"
	// ListenPort is the proxy trapper port used in passive mode.
	ListenPort = 10051
)

// Tuning holds the operational defaults written to every rendered file.
type Tuning struct {
	CacheSize        string `mapstructure:"cache_size"`
	HistoryCacheSize string `mapstructure:"history_cache_size"`
	StartPollers     int    `mapstructure:"start_pollers"`
	StartPingers     int    `mapstructure:"start_pingers"`
	Timeout          int    `mapstructure:"timeout"`
	LogSlowQueries   int    `mapstructure:"log_slow_queries"`
	LogFileSize      int    `mapstructure:"log_file_size"`
}

// Options controls rendering beyond the desired state.
type Options struct {
	LogFile   string
	PidFile   string
	SocketDir string
	Tuning    Tuning
}

// DefaultOptions returns the paths used by the upstream Debian packages.
func DefaultOptions() Options {
	return Options{
		LogFile:   "/var/log/zabbix/zabbix_proxy.log",
		PidFile:   "/run/zabbix/zabbix_proxy.pid",
		SocketDir: "/run/zabbix",
	}
}

const proxyTemplate = `# Managed by zbxproxy. This file is regenerated on every apply;
# local edits are overwritten.
# Zabbix {{ .Version }} proxy {{ .Hostname | quote }}

ProxyMode={{ .ProxyMode }}
Server={{ .Server | trim }}
Hostname={{ .Hostname | trim }}
{{- if .Passive }}
ListenPort={{ .ListenPort }}
{{- end }}

LogFile={{ .LogFile }}
LogFileSize={{ .Tuning.LogFileSize | default 0 }}
PidFile={{ .PidFile }}
SocketDir={{ .SocketDir }}

DBHost={{ .DBHost | default "localhost" }}
{{- if .DBPort }}
DBPort={{ .DBPort }}
{{- end }}
DBName={{ .DBName }}
DBUser={{ .DBUser }}
DBPassword={{ .DBPassword }}
{{ if semverCompare ">=7.0" .Version }}
ProxyConfigFrequency=10
{{- else }}
ConfigFrequency=3600
{{- end }}
CacheSize={{ .Tuning.CacheSize | default "64M" }}
HistoryCacheSize={{ .Tuning.HistoryCacheSize | default "32M" }}
StartPollers={{ .Tuning.StartPollers | default 5 }}
StartPingers={{ .Tuning.StartPingers | default 1 }}
Timeout={{ .Tuning.Timeout | default 4 }}
LogSlowQueries={{ .Tuning.LogSlowQueries | default 3000 }}
StatsAllowedIP=127.0.0.1
`

var tmpl = template.Must(template.New("zabbix_proxy.conf").Funcs(sprig.TxtFuncMap()).Parse(proxyTemplate))

type templateData struct {
	Options
	Version    string
	ProxyMode  int
	Passive    bool
	ListenPort int
	Server     string
	Hostname   string
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string
}

// Render produces the complete configuration file for desired. The output
// is a pure function of its inputs.
func Render(desired reconcile.DesiredState, opts Options) ([]byte, error) {
	defaults := DefaultOptions()
	if opts.LogFile == "" {
		opts.LogFile = defaults.LogFile
	}
	if opts.PidFile == "" {
		opts.PidFile = defaults.PidFile
	}
	if opts.SocketDir == "" {
		opts.SocketDir = defaults.SocketDir
	}

	data := templateData{
		Options:    opts,
		Version:    desired.ZabbixVersion,
		ProxyMode:  desired.ProxyMode.ConfigValue(),
		Passive:    desired.Passive(),
		ListenPort: ListenPort,
		Server:     desired.ServerAddress,
		Hostname:   desired.ProxyHostname,
		DBHost:     desired.Database.Host,
		DBPort:     desired.Database.Port,
		DBName:     desired.Database.Name,
		DBUser:     desired.Database.User,
		DBPassword: desired.Database.Password,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", DefaultPath, err)
	}
	return buf.Bytes(), nil
}

var passwordLine = regexp.MustCompile(`(?m)^(DBPassword=).*$`)

// Redact masks the database password so content can be logged or stored.
func Redact(content []byte) []byte {
	return passwordLine.ReplaceAll(content, []byte("${1}********"))
}
