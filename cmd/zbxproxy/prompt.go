package main

import (
	"context"
	"errors"

	"github.com/alexisbeaulieu97/zbxproxy/internal/config"
	"github.com/alexisbeaulieu97/zbxproxy/internal/tui"
	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

var missingFields = map[string]tui.Field{
	config.KeyServer: {
		Key:         config.KeyServer,
		Label:       "Zabbix server address",
		Placeholder: "192.168.1.1",
		Validate:    validation.ValidateServerAddress,
	},
	config.KeyHostname: {
		Key:         config.KeyHostname,
		Label:       "Proxy hostname",
		Placeholder: "zabbix-proxy",
		Validate:    validation.ValidateHostname,
	},
	config.KeyDatabasePassword: {
		Key:      config.KeyDatabasePassword,
		Label:    "Database password",
		Secret:   true,
		Validate: requireValue,
	},
}

// promptMissing asks the operator for required values the configuration
// left empty.
func promptMissing(ctx context.Context, env *environment, cfg *config.Config) error {
	missing := cfg.Missing()
	if len(missing) == 0 {
		return nil
	}
	fields := make([]tui.Field, 0, len(missing))
	for _, key := range missing {
		fields = append(fields, missingFields[key])
	}

	values, err := tui.Ask(ctx, env.in, env.out, fields)
	if errors.Is(err, tui.ErrAborted) {
		return zerrors.NewDeclinedError("input", err)
	}
	if err != nil {
		return err
	}
	for key, value := range values {
		cfg.Set(key, value)
	}
	return nil
}

func requireValue(s string) error {
	if s == "" {
		return zerrors.NewValidationError("", "", "is required")
	}
	return nil
}
