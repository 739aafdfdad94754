package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/zbxproxy/internal/application/install"
	"github.com/alexisbeaulieu97/zbxproxy/internal/config"
	"github.com/alexisbeaulieu97/zbxproxy/internal/logger"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/steps"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui"
)

// DepsFunc builds the collaborators for one run. The returned func releases
// them.
type DepsFunc func(cfg *config.Config, log ports.Logger) (steps.Deps, func(), error)

// environment is what commands need from the process.
type environment struct {
	in          io.Reader
	out         io.Writer
	errOut      io.Writer
	interactive bool
	deps        DepsFunc
}

func systemEnvironment() *environment {
	return &environment{
		in:          os.Stdin,
		out:         os.Stdout,
		errOut:      os.Stderr,
		interactive: term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd())),
		deps:        hostDeps,
	}
}

// AppContext bundles the services one command invocation works with.
type AppContext struct {
	Config   *config.Config
	Logger   *logger.Logger
	Service  *install.Service
	Prompter ports.Prompter

	// Progress selects the live view; it needs a terminal and no prompts.
	Progress bool
	Color    bool

	release func()
}

type appOptions struct {
	// validate rejects incomplete configuration, prompting first when the
	// terminal allows it.
	validate bool
}

func newAppContext(cmd *cobra.Command, env *environment, root *rootFlags, opts appOptions) (*AppContext, error) {
	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return nil, err
	}
	if opts.validate {
		if env.interactive {
			if err := promptMissing(cmd.Context(), env, cfg); err != nil {
				return nil, err
			}
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	app := &AppContext{
		Config:   cfg,
		Progress: env.interactive && cfg.AssumeYes && !root.plain,
		Color:    env.interactive && !root.plain,
	}

	var logOut io.Writer = env.errOut
	if app.Progress {
		logOut = io.Discard
	}
	level := cfg.Log.Level
	if root.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Options{Level: level, HumanReadable: true, Writer: logOut, File: cfg.Log.File})
	if err != nil {
		return nil, err
	}
	app.Logger = log.WithFields(map[string]any{"component": "zbxproxy"})

	switch {
	case cfg.AssumeYes:
		app.Prompter = tui.Canned{Answer: true}
	case env.interactive:
		app.Prompter = tui.Terminal{In: env.in, Out: env.out}
	default:
		app.Prompter = tui.Canned{Answer: false}
	}

	deps, release, err := env.deps(cfg, app.Logger)
	if err != nil {
		log.Close()
		return nil, err
	}
	app.release = func() {
		if release != nil {
			release()
		}
		log.Close()
	}
	app.Service = install.NewService(deps, cfg.Settings(), app.Prompter, app.Logger)
	return app, nil
}

// Close releases collaborators and the log file.
func (a *AppContext) Close() {
	if a.release != nil {
		a.release()
	}
}

func (a *AppContext) reportOptions(diffs bool) tui.ReportOptions {
	return tui.ReportOptions{Color: a.Color, Diffs: diffs}
}

func loadConfig(cmd *cobra.Command, root *rootFlags) (*config.Config, error) {
	return config.Load(config.LoadOptions{
		File:    root.configFile,
		EnvFile: root.envFile,
		Flags:   cmd.Flags(),
	})
}
