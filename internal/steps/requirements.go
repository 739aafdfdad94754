package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type requirementsStep struct {
	packages ports.PackageManager
	host     ports.HostInspector
	settings Settings
}

func (s *requirementsStep) Name() string { return Requirements }

// Fatal is false: low resources and prerequisite failures only need the
// operator's confirmation.
func (s *requirementsStep) Fatal(reconcile.DesiredState) bool { return false }

func (s *requirementsStep) wanted(desired reconcile.DesiredState) []string {
	wanted := append([]string(nil), s.settings.BasePackages...)
	if desired.Database.IsLocal() {
		switch desired.Database.Engine {
		case reconcile.EnginePostgreSQL:
			wanted = append(wanted, "postgresql")
		default:
			wanted = append(wanted, "default-mysql-server")
		}
	}
	return wanted
}

func (s *requirementsStep) Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error) {
	res, err := s.host.Resources(ctx, s.settings.DiskPath)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Requirements, "host", err)
	}

	eval := &reconcile.Evaluation{}
	if res.TotalMemoryBytes < s.settings.MinMemoryBytes {
		eval.Warnings = append(eval.Warnings, fmt.Sprintf("only %dMB of memory, %dMB recommended",
			res.TotalMemoryBytes>>20, s.settings.MinMemoryBytes>>20))
	}
	if res.FreeDiskBytes < s.settings.MinDiskBytes {
		eval.Warnings = append(eval.Warnings, fmt.Sprintf("only %.1fGB free on %s, %dGB recommended",
			float64(res.FreeDiskBytes)/(1<<30), s.settings.DiskPath, s.settings.MinDiskBytes>>30))
	}

	var missing []string
	for _, name := range s.wanted(desired) {
		_, installed, err := s.packages.InstalledVersion(ctx, name)
		if err != nil {
			return nil, zerrors.NewCollaboratorError(Requirements, "package manager", err)
		}
		if !installed {
			missing = append(missing, name)
		}
	}

	if len(missing) == 0 {
		eval.Satisfied = true
		eval.Message = "prerequisites installed"
		return eval, nil
	}
	eval.Message = "missing prerequisites: " + strings.Join(missing, ", ")
	eval.Diff = "Would install: " + strings.Join(missing, ", ")
	eval.Data = missing
	return eval, nil
}

func (s *requirementsStep) Apply(ctx context.Context, desired reconcile.DesiredState, eval *reconcile.Evaluation) reconcile.StepResult {
	missing, _ := eval.Data.([]string)
	if len(missing) == 0 {
		return reconcile.AlreadySatisfied(Requirements, "prerequisites installed")
	}
	if err := s.packages.UpdateIndex(ctx); err != nil {
		return reconcile.Failed(Requirements, zerrors.NewCollaboratorError(Requirements, "package manager", err))
	}
	if err := s.packages.Install(ctx, missing...); err != nil {
		return reconcile.Failed(Requirements, zerrors.NewCollaboratorError(Requirements, "package manager", err))
	}
	return reconcile.Applied(Requirements, "installed "+strings.Join(missing, ", "))
}
