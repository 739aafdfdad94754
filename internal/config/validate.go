package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/alexisbeaulieu97/zbxproxy/internal/validation"
	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		if err := validation.RegisterTags(v); err != nil {
			panic(fmt.Sprintf("register validation tags: %v", err))
		}
		validateInst = v
	})
	return validateInst
}

// Validate checks every field and reports all violations as
// ValidationErrors keyed by configuration key.
func (c *Config) Validate() error {
	var result *multierror.Error

	if err := validatorInstance().Struct(c); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return zerrors.NewValidationError("config", "", err.Error())
		}
		for _, fe := range ves {
			result = multierror.Append(result, convertFieldError(fe))
		}
	}

	if c.Network.Configure {
		required := map[string]string{
			"network.interface": c.Network.Interface,
			"network.address":   c.Network.Address,
			"network.netmask":   c.Network.Netmask,
		}
		for _, key := range []string{"network.interface", "network.address", "network.netmask"} {
			if required[key] == "" {
				result = multierror.Append(result, zerrors.NewValidationError(key, "", "is required when network.configure is set"))
			}
		}
	}

	return result.ErrorOrNil()
}

func convertFieldError(fe validator.FieldError) error {
	field := configKey(fe)
	value := fmt.Sprint(fe.Value())
	if strings.Contains(field, "password") {
		value = "<redacted>"
	}

	if reason, ok := validation.Explain(fe.Tag(), fmt.Sprint(fe.Value())); ok {
		return zerrors.NewValidationError(field, value, reason)
	}

	var reason string
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "oneof":
		reason = "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "gte":
		reason = "must be at least " + fe.Param()
	case "lte":
		reason = "must be at most " + fe.Param()
	case "url":
		reason = "must be a URL"
	default:
		reason = fmt.Sprintf("failed the %q check", fe.Tag())
	}
	return zerrors.NewValidationError(field, value, reason)
}

// configKey turns "Config.database.name" into "database.name" and
// "Config.network.dns[1]" into "network.dns[1]".
func configKey(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}
