package reconcile

import "strings"

// ReleaseOf extracts major.minor from a Debian package version such as
// "1:7.0.5-1+debian12".
func ReleaseOf(debVersion string) string {
	v := debVersion
	if _, rest, ok := strings.Cut(v, ":"); ok {
		v = rest
	}
	v, _, _ = strings.Cut(v, "-")
	parts := strings.SplitN(v, ".", 3)
	if len(parts) < 2 {
		return v
	}
	return parts[0] + "." + parts[1]
}
