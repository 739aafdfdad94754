// Package config loads the installer configuration from file, environment
// and flags and turns it into the desired state and step settings.
package config

import (
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/proxyconf"
	"github.com/alexisbeaulieu97/zbxproxy/internal/steps"
)

// Config is the decoded configuration. Field tags name the keys used in
// YAML files, ZBXPROXY_ environment variables and viper.
type Config struct {
	Version           string           `mapstructure:"version" validate:"omitempty,zbxversion"`
	Server            string           `mapstructure:"server" validate:"required,zbxserver"`
	Hostname          string           `mapstructure:"hostname" validate:"required,zbxhostname"`
	Mode              string           `mapstructure:"mode" validate:"oneof=active passive"`
	ConfigureHostname bool             `mapstructure:"configure_hostname"`
	AssumeYes         bool             `mapstructure:"assume_yes"`
	Database          DatabaseConfig   `mapstructure:"database"`
	Network           NetworkConfig    `mapstructure:"network"`
	Tuning            proxyconf.Tuning `mapstructure:"tuning"`
	Service           ServiceConfig    `mapstructure:"service"`
	Log               LogConfig        `mapstructure:"log"`
	History           HistoryConfig    `mapstructure:"history"`
	Upstream          UpstreamConfig   `mapstructure:"upstream"`

	// Source is the file the configuration was read from, if any.
	Source string `mapstructure:"-"`
}

// DatabaseConfig describes the proxy database and the account used to
// provision it.
type DatabaseConfig struct {
	Engine   string           `mapstructure:"engine" validate:"oneof=mysql postgresql"`
	Host     string           `mapstructure:"host" validate:"required,zbxserver"`
	Port     int              `mapstructure:"port" validate:"gte=0,lte=65535"`
	Name     string           `mapstructure:"name" validate:"required,sqlident"`
	User     string           `mapstructure:"user" validate:"required,sqlident"`
	Password string           `mapstructure:"password" validate:"required"`
	Admin    steps.AdminLogin `mapstructure:"admin"`
}

// NetworkConfig is the optional static address. Fields are only checked
// for presence when Configure is set.
type NetworkConfig struct {
	Configure bool     `mapstructure:"configure"`
	Interface string   `mapstructure:"interface" validate:"omitempty,ifname"`
	Address   string   `mapstructure:"address" validate:"omitempty,ipv4addr"`
	Netmask   string   `mapstructure:"netmask" validate:"omitempty,netmask"`
	Gateway   string   `mapstructure:"gateway" validate:"omitempty,ipv4addr"`
	DNS       []string `mapstructure:"dns" validate:"dive,ipv4addr"`
	MTU       int      `mapstructure:"mtu" validate:"omitempty,gte=576,lte=9216"`
}

// ServiceConfig tunes how long the service gets to come up.
type ServiceConfig struct {
	Timeout  time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Interval time.Duration `mapstructure:"interval" validate:"gte=0"`
}

// LogConfig controls the installer's own log.
type LogConfig struct {
	Level string `mapstructure:"level" validate:"oneof=debug info warn error"`
	File  string `mapstructure:"file"`
}

// HistoryConfig controls the git history of rendered configurations.
type HistoryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

// UpstreamConfig points at the package repository.
type UpstreamConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
	Retries int           `mapstructure:"retries" validate:"gte=0"`
}

// Desired builds the immutable desired state for a run.
func (c *Config) Desired() reconcile.DesiredState {
	return reconcile.DesiredState{
		ZabbixVersion:     c.Version,
		ServerAddress:     c.Server,
		ProxyHostname:     c.Hostname,
		ProxyMode:         reconcile.ProxyMode(c.Mode),
		ConfigureHostname: c.ConfigureHostname,
		Database: reconcile.Database{
			Engine:   reconcile.DatabaseEngine(c.Database.Engine),
			Host:     c.Database.Host,
			Port:     c.Database.Port,
			Name:     c.Database.Name,
			User:     c.Database.User,
			Password: c.Database.Password,
		},
		Network: reconcile.Network{
			Configure:   c.Network.Configure,
			Interface:   c.Network.Interface,
			Address:     c.Network.Address,
			Netmask:     c.Network.Netmask,
			Gateway:     c.Network.Gateway,
			Nameservers: append([]string(nil), c.Network.DNS...),
			MTU:         c.Network.MTU,
		},
	}
}

// Settings overlays the configured knobs on the packaged defaults.
func (c *Config) Settings() steps.Settings {
	s := steps.DefaultSettings()
	s.Admin = c.Database.Admin
	s.Render.Tuning = c.Tuning
	if c.Service.Timeout > 0 {
		s.ServiceTimeout = c.Service.Timeout
	}
	if c.Service.Interval > 0 {
		s.ServiceInterval = c.Service.Interval
	}
	return s
}

// Missing lists the keys of required values that are still empty, in the
// order an operator would be asked for them.
func (c *Config) Missing() []string {
	var keys []string
	if c.Server == "" {
		keys = append(keys, KeyServer)
	}
	if c.Hostname == "" {
		keys = append(keys, KeyHostname)
	}
	if c.Database.Password == "" {
		keys = append(keys, KeyDatabasePassword)
	}
	return keys
}

// Set assigns one of the prompted keys.
func (c *Config) Set(key, value string) {
	switch key {
	case KeyServer:
		c.Server = value
	case KeyHostname:
		c.Hostname = value
	case KeyDatabasePassword:
		c.Database.Password = value
	case KeyVersion:
		c.Version = value
	}
}
