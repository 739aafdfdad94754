// Package install coordinates a full reconciliation run: input validation,
// version resolution, the step sequence and post-run verification.
package install

import (
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/steps"
)

// Service runs installs, plans and verifications against one host.
type Service struct {
	deps     steps.Deps
	settings steps.Settings
	prompter ports.Prompter
	logger   ports.Logger
	now      func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithClock replaces the wall clock used for version ceilings and run
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService wires the canonical steps and checks over deps.
func NewService(deps steps.Deps, settings steps.Settings, prompter ports.Prompter, logger ports.Logger, opts ...Option) *Service {
	s := &Service{
		deps:     deps,
		settings: settings,
		prompter: prompter,
		logger:   logger,
		now:      time.Now,
	}
	if s.deps.Logger == nil {
		s.deps.Logger = logger
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Steps lists the step names a run reports, ending with verification when
// verify is set.
func (s *Service) Steps(verify bool) []string {
	names := steps.Names()
	if !verify {
		return names[:len(names)-1]
	}
	return names
}

func (s *Service) sequencer(obs engine.Observer) *engine.Sequencer {
	verifier := engine.NewVerifier(s.logger, steps.Checks(s.deps, s.settings)...)
	opts := []engine.Option{engine.WithClock(s.now)}
	if obs != nil {
		opts = append(opts, engine.WithObserver(obs))
	}
	return engine.NewSequencer(steps.Canonical(s.deps, s.settings), verifier, s.prompter, s.logger, opts...)
}

// failedReport is the report of a run that stopped before any step ran.
func (s *Service) failedReport(err error, dryRun bool) reconcile.Report {
	now := s.now()
	return reconcile.Report{
		RunID:    uuid.NewString(),
		DryRun:   dryRun,
		Err:      err,
		Started:  now,
		Finished: now,
	}
}

func (s *Service) info(msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Info(msg, fields...)
	}
}

func (s *Service) warn(msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, fields...)
	}
}

func (s *Service) error(err error, msg string, fields ...any) {
	if s.logger != nil {
		s.logger.Error(err, msg, fields...)
	}
}
