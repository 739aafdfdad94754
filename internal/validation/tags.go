package validation

import (
	"errors"

	"github.com/go-playground/validator/v10"

	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// tagValidators maps struct tags to the validators backing them.
var tagValidators = map[string]func(string) error{
	"ipv4addr":    ValidateIPv4Address,
	"netmask":     ValidateNetmask,
	"zbxhostname": ValidateHostname,
	"zbxserver":   ValidateServerAddress,
	"zbxversion":  ValidateVersionFormat,
	"sqlident":    ValidateIdentifier,
	"ifname":      ValidateInterfaceName,
}

// RegisterTags installs the validators as go-playground struct tags.
func RegisterTags(v *validator.Validate) error {
	for tag, fn := range tagValidators {
		check := fn
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return check(fl.Field().String()) == nil
		}); err != nil {
			return err
		}
	}
	return nil
}

// Explain returns the rejection reason a tag validator gives for value.
func Explain(tag, value string) (string, bool) {
	fn, ok := tagValidators[tag]
	if !ok {
		return "", false
	}
	err := fn(value)
	if err == nil {
		return "", false
	}
	var ve *zerrors.ValidationError
	if errors.As(err, &ve) {
		return ve.Reason, true
	}
	return err.Error(), true
}
