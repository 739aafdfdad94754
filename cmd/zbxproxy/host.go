package main

import (
	"time"

	"github.com/alexisbeaulieu97/zbxproxy/internal/config"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/apt"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/command"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/fsys"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/history"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/hostctl"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/hostinfo"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/netplan"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/sqldb"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/systemd"
	"github.com/alexisbeaulieu97/zbxproxy/internal/infrastructure/upstream"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/steps"
)

const probeTimeout = 2 * time.Second

// hostDeps wires the adapters for the local Debian host.
func hostDeps(cfg *config.Config, log ports.Logger) (steps.Deps, func(), error) {
	runner := &command.Exec{Env: apt.NoninteractiveEnv()}
	packages := apt.New(runner)
	files := fsys.Files{}
	services := systemd.New(nil)

	deps := steps.Deps{
		Packages: packages,
		Repository: upstream.New(runner, packages, upstream.Options{
			BaseURL:  cfg.Upstream.BaseURL,
			Timeout:  cfg.Upstream.Timeout,
			RetryMax: cfg.Upstream.Retries,
			Logger:   log,
		}),
		Databases: sqldb.Connector{},
		Services:  services,
		Network:   netplan.New(files, runner, netplan.DefaultPath, nil),
		Hostname:  hostctl.New(runner),
		Host:      hostinfo.Inspector{},
		Probe:     hostinfo.Probe{Timeout: probeTimeout},
		Dirs:      fsys.Directories{},
		Files:     files,
		Logger:    log,
	}
	if cfg.History.Enabled {
		deps.History = history.New(cfg.History.Dir)
	}
	return deps, services.Close, nil
}
