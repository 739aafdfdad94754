package validation

import (
	"regexp"
	"strings"

	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

const maxHostnameLength = 253

var (
	hostnamePattern   = regexp.MustCompile(`^[a-zA-Z0-9.-]+$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_]{1,64}$`)
	interfacePattern  = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,15}$`)
)

// ValidateHostname accepts a non-empty name made of letters, digits, dots and
// hyphens that neither starts nor ends with a dot or hyphen.
func ValidateHostname(s string) error {
	return validateHostname("hostname", s)
}

// ValidateServerAddress accepts an IPv4 literal or a hostname. Four numeric
// labels are always read as IPv4.
func ValidateServerAddress(s string) error {
	if isDottedQuad(s) {
		if _, reason := parseOctets(s); reason != "" {
			return zerrors.NewValidationError("server", s, reason)
		}
		return nil
	}
	return validateHostname("server", s)
}

// ValidateIdentifier accepts database and user names that can be embedded in
// SQL without quoting surprises.
func ValidateIdentifier(s string) error {
	if !identifierPattern.MatchString(s) {
		return zerrors.NewValidationError("identifier", s, "must be 1-64 letters, digits or underscores")
	}
	return nil
}

// ValidateInterfaceName accepts Linux network interface names.
func ValidateInterfaceName(s string) error {
	if !interfacePattern.MatchString(s) {
		return zerrors.NewValidationError("interface", s, "must be 1-15 letters, digits, dots, underscores or hyphens")
	}
	return nil
}

func validateHostname(field, s string) error {
	switch {
	case s == "":
		return zerrors.NewValidationError(field, s, "must not be empty")
	case len(s) > maxHostnameLength:
		return zerrors.NewValidationError(field, s, "must be at most 253 characters")
	case !hostnamePattern.MatchString(s):
		return zerrors.NewValidationError(field, s, "may only contain letters, digits, dots and hyphens")
	case strings.HasPrefix(s, ".") || strings.HasPrefix(s, "-"):
		return zerrors.NewValidationError(field, s, "must not start with a dot or hyphen")
	case strings.HasSuffix(s, ".") || strings.HasSuffix(s, "-"):
		return zerrors.NewValidationError(field, s, "must not end with a dot or hyphen")
	}
	return nil
}
