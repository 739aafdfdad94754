package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// ErrInvalidNetmask is wrapped by every netmask rejection.
var ErrInvalidNetmask = errors.New("invalid netmask")

// maskOctetBits maps each canonical mask octet to its prefix contribution.
var maskOctetBits = map[int]int{
	255: 8,
	254: 7,
	252: 6,
	248: 5,
	240: 4,
	224: 3,
	192: 2,
	128: 1,
	0:   0,
}

// ValidateIPv4Address accepts four dot-separated decimal octets in 0-255.
// Leading zeros are tolerated.
func ValidateIPv4Address(s string) error {
	if _, reason := parseOctets(s); reason != "" {
		return zerrors.NewValidationError("address", s, reason)
	}
	return nil
}

// ValidateNetmask accepts a contiguous-prefix IPv4 netmask: every octet is a
// canonical mask octet, octets never increase left to right, and once an
// octet is below 255 all following octets are 0.
func ValidateNetmask(s string) error {
	_, err := maskPrefix(s)
	return err
}

// NetmaskToCIDR converts a netmask to its prefix length. The mask goes
// through the same rules as ValidateNetmask before any bits are counted.
func NetmaskToCIDR(mask string) (int, error) {
	return maskPrefix(mask)
}

// CIDRToNetmask renders a prefix length as a dotted netmask.
func CIDRToNetmask(prefix int) (string, error) {
	if prefix < 0 || prefix > 32 {
		return "", zerrors.NewValidationError("prefix", strconv.Itoa(prefix), "prefix length must be between 0 and 32")
	}
	octets := make([]string, 4)
	for i := range octets {
		bits := min(max(prefix-8*i, 0), 8)
		octets[i] = strconv.Itoa((0xff << (8 - bits)) & 0xff)
	}
	return strings.Join(octets, "."), nil
}

func maskPrefix(s string) (int, error) {
	octets, reason := parseOctets(s)
	if reason != "" {
		return 0, netmaskError(s, reason)
	}

	prefix := 0
	for i, octet := range octets {
		bits, ok := maskOctetBits[octet]
		if !ok {
			return 0, netmaskError(s, fmt.Sprintf("octet %d is not a valid mask octet", octet))
		}
		if i > 0 {
			prev := octets[i-1]
			if octet > prev {
				return 0, netmaskError(s, "octets must not increase from left to right")
			}
			if prev != 255 && octet != 0 {
				return 0, netmaskError(s, "mask bits must be contiguous")
			}
		}
		prefix += bits
	}
	return prefix, nil
}

func netmaskError(value, reason string) error {
	return &zerrors.ValidationError{Field: "netmask", Value: value, Reason: reason, Err: ErrInvalidNetmask}
}

// parseOctets splits s into four octets. A non-empty reason means s is not
// an IPv4 literal.
func parseOctets(s string) ([4]int, string) {
	var octets [4]int
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return octets, "must be four dot-separated octets"
	}
	for i, part := range parts {
		if part == "" || strings.TrimLeft(part, "0123456789") != "" {
			return octets, fmt.Sprintf("octet %q is not a decimal number", part)
		}
		n, err := strconv.Atoi(part)
		if err != nil || n > 255 {
			return octets, fmt.Sprintf("octet %s is outside 0-255", part)
		}
		octets[i] = n
	}
	return octets, ""
}

// isDottedQuad reports whether s has the shape of an IPv4 literal. Other
// all-numeric names such as "123" are left to the hostname rule.
func isDottedQuad(s string) bool {
	return strings.Count(s, ".") == 3 && strings.Trim(s, "0123456789.") == ""
}
