package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type repositoryStep struct {
	packages   ports.PackageManager
	repository ports.RepositoryRegistrar
}

type repositoryPlan struct {
	register bool
	pending  []string
}

func (s *repositoryStep) Name() string { return Repository }

func (s *repositoryStep) Fatal(reconcile.DesiredState) bool { return true }

func (s *repositoryStep) Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error) {
	version := desired.ZabbixVersion
	plan := repositoryPlan{}
	var notes []string

	registered, ok, err := s.repository.RegisteredVersion(ctx)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Repository, "repository", err)
	}
	if !ok || registered != version {
		plan.register = true
		if ok {
			notes = append(notes, fmt.Sprintf("repository registered for %s", registered))
		} else {
			notes = append(notes, "repository not registered")
		}
	}

	for _, name := range ProxyPackages(desired.Database.Engine) {
		installed, present, err := s.packages.InstalledVersion(ctx, name)
		if err != nil {
			return nil, zerrors.NewCollaboratorError(Repository, "package manager", err)
		}
		switch {
		case !present:
			plan.pending = append(plan.pending, name)
			notes = append(notes, name+" not installed")
		case reconcile.ReleaseOf(installed) != version:
			plan.pending = append(plan.pending, name)
			notes = append(notes, fmt.Sprintf("%s is %s", name, installed))
		}
	}

	if !plan.register && len(plan.pending) == 0 {
		return &reconcile.Evaluation{Satisfied: true, Message: "Zabbix " + version + " packages installed"}, nil
	}

	eval := &reconcile.Evaluation{Message: strings.Join(notes, "; "), Data: plan}
	var diff strings.Builder
	if plan.register {
		fmt.Fprintf(&diff, "Would register Zabbix %s repository\n", version)
	}
	if len(plan.pending) > 0 {
		fmt.Fprintf(&diff, "Would install: %s\n", strings.Join(plan.pending, ", "))
	}
	eval.Diff = diff.String()
	return eval, nil
}

func (s *repositoryStep) Apply(ctx context.Context, desired reconcile.DesiredState, eval *reconcile.Evaluation) reconcile.StepResult {
	version := desired.ZabbixVersion
	plan, ok := eval.Data.(repositoryPlan)
	if !ok {
		plan = repositoryPlan{register: true, pending: ProxyPackages(desired.Database.Engine)}
	}
	if plan.register {
		if err := s.repository.RegisterRepository(ctx, version); err != nil {
			return reconcile.Failed(Repository, zerrors.NewCollaboratorError(Repository, "repository", err))
		}
		// Packages from another release are replaced by the new source.
		plan.pending = ProxyPackages(desired.Database.Engine)
	}
	if err := s.packages.UpdateIndex(ctx); err != nil {
		return reconcile.Failed(Repository, zerrors.NewCollaboratorError(Repository, "package manager", err))
	}
	if err := s.packages.Install(ctx, plan.pending...); err != nil {
		return reconcile.Failed(Repository, zerrors.NewCollaboratorError(Repository, "package manager", err))
	}

	for _, name := range plan.pending {
		installed, present, err := s.packages.InstalledVersion(ctx, name)
		if err != nil {
			return reconcile.Failed(Repository, zerrors.NewCollaboratorError(Repository, "package manager", err))
		}
		if !present || reconcile.ReleaseOf(installed) != version {
			return reconcile.Failed(Repository, zerrors.NewCollaboratorError(Repository, "package manager",
				fmt.Errorf("%s is %q after install, want %s", name, installed, version)))
		}
	}
	return reconcile.Applied(Repository, fmt.Sprintf("Zabbix %s installed: %s", version, strings.Join(plan.pending, ", ")))
}
