package steps

import (
	"bytes"
	"context"
	"fmt"

	"github.com/alexisbeaulieu97/zbxproxy/internal/domain/reconcile"
	"github.com/alexisbeaulieu97/zbxproxy/internal/ports"
	"github.com/alexisbeaulieu97/zbxproxy/internal/proxyconf"
	"github.com/alexisbeaulieu97/zbxproxy/pkg/diff"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

type configStep struct {
	files    ports.FileStore
	history  ports.ConfigHistory
	logger   ports.Logger
	settings Settings
}

func (s *configStep) Name() string { return Config }

func (s *configStep) Fatal(reconcile.DesiredState) bool { return true }

func (s *configStep) Evaluate(ctx context.Context, desired reconcile.DesiredState) (*reconcile.Evaluation, error) {
	rendered, err := proxyconf.Render(desired, s.settings.Render)
	if err != nil {
		return nil, err
	}
	current, exists, err := s.files.ReadFile(ctx, s.settings.ConfigPath)
	if err != nil {
		return nil, zerrors.NewCollaboratorError(Config, "filesystem", err)
	}
	if exists && bytes.Equal(current, rendered) {
		return &reconcile.Evaluation{Satisfied: true, Message: s.settings.ConfigPath + " is up to date"}, nil
	}

	message := s.settings.ConfigPath + " differs from the rendered configuration"
	if !exists {
		message = s.settings.ConfigPath + " does not exist"
	}
	return &reconcile.Evaluation{
		Message: message,
		Diff:    diff.Lines(proxyconf.Redact(current), proxyconf.Redact(rendered), s.settings.ConfigPath, "rendered", 3),
		Data:    rendered,
	}, nil
}

// Apply replaces the whole file; keys added by hand are not kept.
func (s *configStep) Apply(ctx context.Context, desired reconcile.DesiredState, eval *reconcile.Evaluation) reconcile.StepResult {
	rendered, ok := eval.Data.([]byte)
	if !ok {
		var err error
		if rendered, err = proxyconf.Render(desired, s.settings.Render); err != nil {
			return reconcile.Failed(Config, err)
		}
	}
	if err := s.files.WriteFile(ctx, s.settings.ConfigPath, rendered, s.settings.ConfigMode); err != nil {
		return reconcile.Failed(Config, zerrors.NewCollaboratorError(Config, "filesystem", err))
	}
	// The proxy runs as Group and must read its own configuration.
	if err := s.files.Chown(ctx, s.settings.ConfigPath, s.settings.ConfigOwner, s.settings.Group); err != nil {
		return reconcile.Failed(Config, zerrors.NewCollaboratorError(Config, "filesystem", err))
	}

	if s.history != nil {
		message := fmt.Sprintf("zabbix_proxy.conf for %s (Zabbix %s)", desired.ProxyHostname, desired.ZabbixVersion)
		if err := s.history.Record(ctx, "zabbix_proxy.conf", proxyconf.Redact(rendered), message); err != nil && s.logger != nil {
			s.logger.Warn("could not record configuration history", "error", err.Error())
		}
	}

	result := reconcile.Applied(Config, "wrote "+s.settings.ConfigPath)
	result.Diff = eval.Diff
	return result
}
