package install

import (
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// versionCheckpoint names the confirmation asked for unexpectedly new
// versions.
const versionCheckpoint = "version"

// Prepare validates desired and resolves its version against the upstream
// list. The version range is checked before any collaborator is called, so
// a too-old version never touches the host. An empty version resolves to the
// latest published release. When confirm is false a version above the
// expected ceiling is accepted with a warning instead of a prompt.
func (s *Service) Prepare(ctx context.Context, desired reconcile.DesiredState, confirm bool) (reconcile.DesiredState, error) {
	requested := desired.ZabbixVersion
	if requested != "" {
		if _, err := validation.CheckVersionRange(requested, s.now()); err != nil {
			s.error(err, "version rejected", "version", requested)
			return desired, err
		}
	}
	if err := validation.ValidateDesiredState(desired, s.now()); err != nil {
		s.error(err, "desired state rejected")
		return desired, err
	}

	available, err := s.AvailableVersions(ctx)
	if err != nil {
		return desired, err
	}

	var verdict validation.VersionVerdict
	if requested == "" {
		latest, err := validation.LatestVersion(available)
		if err != nil {
			return desired, err
		}
		desired = desired.WithVersion(latest)
		verdict, err = validation.CheckVersionRange(latest, s.now())
		if err != nil {
			return desired, err
		}
		s.info("resolved latest version", "version", latest)
	} else {
		verdict, err = validation.CheckVersion(requested, available, s.now())
		if err != nil {
			s.error(err, "version rejected", "version", requested, "available", available)
			return desired, err
		}
	}

	if verdict.NeedsConfirmation {
		if !confirm {
			s.warn("version needs confirmation", "version", verdict.Version, "reason", verdict.Reason)
			return desired, nil
		}
		question := fmt.Sprintf("Zabbix %s: %s. Install it anyway?", verdict.Version, verdict.Reason)
		ok, err := s.ask(ctx, question)
		if err != nil {
			return desired, zerrors.NewDeclinedError(versionCheckpoint, err)
		}
		if !ok {
			return desired, zerrors.NewDeclinedError(versionCheckpoint, nil)
		}
	}
	return desired, nil
}

// AvailableVersions returns the published major.minor releases in
// ascending order.
func (s *Service) AvailableVersions(ctx context.Context) ([]string, error) {
	versions, err := s.deps.Repository.FetchAvailableVersions(ctx)
	if err != nil {
		err = zerrors.NewCollaboratorError("prepare", "repository", err)
		s.error(err, "cannot list upstream versions")
		return nil, err
	}
	return validation.SortVersions(versions), nil
}

func (s *Service) ask(ctx context.Context, question string) (bool, error) {
	if s.prompter == nil {
		return false, nil
	}
	ok, err := s.prompter.Confirm(ctx, question)
	if err != nil {
		return false, err
	}
	s.info("checkpoint answered", "question", question, "continue", ok)
	return ok, nil
}
