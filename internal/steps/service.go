package steps

import (
	"context"
	"strings"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/engine"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type serviceStep struct {
	services ports.ServiceManager
	files    ports.FileStore
	settings Settings
}

func (s *serviceStep) Name() string { return Service }

func (s *serviceStep) Fatal(reconcile.DesiredState) bool { return true }

func (s *serviceStep) Evaluate(ctx context.Context, _ reconcile.DesiredState) (*reconcile.Evaluation, error) {
	unit := s.settings.ServiceUnit
	wrap := func(err error) error { return zerrors.NewCollaboratorError(Service, "service manager", err) }

	active, err := s.services.IsActive(ctx, unit)
	if err != nil {
		return nil, wrap(err)
	}
	enabled, err := s.services.IsEnabled(ctx, unit)
	if err != nil {
		return nil, wrap(err)
	}

	var reasons []string
	if !active {
		reasons = append(reasons, unit+" is not active")
	}
	if !enabled {
		reasons = append(reasons, unit+" is not enabled")
	}
	if active {
		since, err := s.services.ActiveSince(ctx, unit)
		if err != nil {
			return nil, wrap(err)
		}
		modified, exists, err := s.files.ModTime(ctx, s.settings.ConfigPath)
		if err != nil {
			return nil, zerrors.NewCollaboratorError(Service, "filesystem", err)
		}
		if exists && since.Before(modified) {
			reasons = append(reasons, unit+" started before the last configuration change")
		}
	}

	if len(reasons) == 0 {
		return &reconcile.Evaluation{Satisfied: true, Message: unit + " is running the current configuration"}, nil
	}
	return &reconcile.Evaluation{
		Message: strings.Join(reasons, "; "),
		Diff:    "Would enable and restart " + unit + "\n",
	}, nil
}

func (s *serviceStep) Apply(ctx context.Context, _ reconcile.DesiredState, _ *reconcile.Evaluation) reconcile.StepResult {
	unit := s.settings.ServiceUnit
	if err := s.services.EnableOnBoot(ctx, unit); err != nil {
		return reconcile.Failed(Service, zerrors.NewCollaboratorError(Service, "service manager", err))
	}
	if err := s.services.Restart(ctx, unit); err != nil {
		return reconcile.Failed(Service, zerrors.NewCollaboratorError(Service, "service manager", err))
	}
	if err := engine.WaitForActive(ctx, s.services, unit, s.settings.ServiceTimeout, s.settings.ServiceInterval); err != nil {
		return reconcile.Failed(Service, zerrors.NewCollaboratorError(Service, "service manager", err))
	}
	return reconcile.Applied(Service, unit+" enabled and active")
}
