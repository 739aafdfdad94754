package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type directoriesStep struct {
	dirs     ports.DirectoryManager
	settings Settings
}

func (s *directoriesStep) Name() string { return Directories }

func (s *directoriesStep) Fatal(reconcile.DesiredState) bool { return true }

func (s *directoriesStep) Evaluate(ctx context.Context, _ reconcile.DesiredState) (*reconcile.Evaluation, error) {
	var drift []string
	for _, dir := range s.settings.Directories {
		state, err := s.dirs.Inspect(ctx, dir)
		if err != nil {
			return nil, zerrors.NewCollaboratorError(Directories, "filesystem", err)
		}
		switch {
		case !state.Exists:
			drift = append(drift, dir+" missing")
		case state.Owner != s.settings.Owner || state.Group != s.settings.Group:
			drift = append(drift, fmt.Sprintf("%s owned by %s:%s", dir, state.Owner, state.Group))
		case state.Mode.Perm() != s.settings.DirMode.Perm():
			drift = append(drift, fmt.Sprintf("%s has mode %04o", dir, state.Mode.Perm()))
		}
	}
	if len(drift) == 0 {
		return &reconcile.Evaluation{Satisfied: true, Message: "runtime directories conform"}, nil
	}
	return &reconcile.Evaluation{
		Message: strings.Join(drift, "; "),
		Diff:    fmt.Sprintf("Would ensure %s as %s:%s %04o\n", strings.Join(s.settings.Directories, ", "), s.settings.Owner, s.settings.Group, s.settings.DirMode.Perm()),
	}, nil
}

// Apply creates missing directories and sets ownership and mode on all of
// them, whatever Evaluate found.
func (s *directoriesStep) Apply(ctx context.Context, _ reconcile.DesiredState, _ *reconcile.Evaluation) reconcile.StepResult {
	for _, dir := range s.settings.Directories {
		if err := s.dirs.Ensure(ctx, dir, s.settings.Owner, s.settings.Group, s.settings.DirMode); err != nil {
			return reconcile.Failed(Directories, zerrors.NewCollaboratorError(Directories, "filesystem", fmt.Errorf("%s: %w", dir, err)))
		}
	}
	return reconcile.Applied(Directories, fmt.Sprintf("%d directories ensured", len(s.settings.Directories)))
}
