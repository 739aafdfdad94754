package steps

import (
	"context"
	"fmt"
	"regexp"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/lineedit"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

var loopbackEntry = regexp.MustCompile(`^\s*127\.0\.1\.1\s`)

type hostnameStep struct {
	hostname  ports.HostnameConfigurator
	files     ports.FileStore
	hostsPath string
}

func (s *hostnameStep) Name() string { return Hostname }

func (s *hostnameStep) Fatal(desired reconcile.DesiredState) bool { return desired.ConfigureHostname }

func hostsLine(name string) string {
	return "127.0.1.1\t" + name
}

func (s *hostnameStep) Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error) {
	if !desired.ConfigureHostname {
		return &reconcile.Evaluation{SkipReason: "hostname configuration not requested"}, nil
	}

	current, err := s.hostname.CurrentHostname(ctx)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Hostname, "hostname", err)
	}
	hosts, _, err := s.files.ReadFile(ctx, s.hostsPath)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Hostname, "filesystem", err)
	}

	want := desired.ProxyHostname
	_, hostsChanged := lineedit.Ensure(hosts, loopbackEntry, hostsLine(want))
	if current == want && !hostsChanged {
		return &reconcile.Evaluation{Satisfied: true, Message: "hostname is " + want}, nil
	}

	eval := &reconcile.Evaluation{Message: fmt.Sprintf("hostname is %q, want %q", current, want)}
	if current == want {
		eval.Message = s.hostsPath + " lacks " + want
	}
	return eval, nil
}

func (s *hostnameStep) Apply(ctx context.Context, desired reconcile.DesiredState, eval *reconcile.Evaluation) reconcile.StepResult {
	want := desired.ProxyHostname

	current, err := s.hostname.CurrentHostname(ctx)
	if err != nil {
		return reconcile.Failed(Hostname, zerrors.NewCollaboratorError(Hostname, "hostname", err))
	}
	if current != want {
		if err := s.hostname.SetHostname(ctx, want); err != nil {
			return reconcile.Failed(Hostname, zerrors.NewCollaboratorError(Hostname, "hostname", err))
		}
	}

	hosts, _, err := s.files.ReadFile(ctx, s.hostsPath)
	if err != nil {
		return reconcile.Failed(Hostname, zerrors.NewCollaboratorError(Hostname, "filesystem", err))
	}
	if updated, changed := lineedit.Ensure(hosts, loopbackEntry, hostsLine(want)); changed {
		if err := s.files.WriteFile(ctx, s.hostsPath, updated, 0o644); err != nil {
			return reconcile.Failed(Hostname, zerrors.NewCollaboratorError(Hostname, "filesystem", err))
		}
	}
	return reconcile.Applied(Hostname, "hostname set to "+want)
}
