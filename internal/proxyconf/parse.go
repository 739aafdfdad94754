package proxyconf

import (
	"fmt"

	"gopkg.in/ini.v1"
)

// Parse reads key=value settings from a zabbix_proxy.conf style document.
// Values are taken verbatim; '#' only starts a comment at line start.
func Parse(content []byte) (map[string]string, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, content)
	if err != nil {
		return nil, fmt.Errorf("parse proxy configuration: %w", err)
	}
	return cfg.Section(ini.DefaultSection).KeysHash(), nil
}

// Mismatches compares the keys that identify a proxy against desired values
// and describes every difference.
func Mismatches(settings map[string]string, want map[string]string) []string {
	var out []string
	for _, key := range []string{"Server", "Hostname", "ProxyMode", "DBHost", "DBName", "DBUser"} {
		expected, ok := want[key]
		if !ok {
			continue
		}
		actual, present := settings[key]
		switch {
		case !present:
			out = append(out, fmt.Sprintf("%s is missing", key))
		case actual != expected:
			out = append(out, fmt.Sprintf("%s is %q, want %q", key, actual, expected))
		}
	}
	return out
}
