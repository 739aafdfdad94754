package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"

	goversion "github.com/hashicorp/go-version"

	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

// MinimumMajorVersion is the oldest major release the installer supports.
const MinimumMajorVersion = 4

// majorVersionEpoch turns a calendar year into the highest plausible major
// release: upstream ships roughly one major per year since 2010.
const majorVersionEpoch = 2010

var versionPattern = regexp.MustCompile(`^(\d+)\.(\d+)$`)

// VersionVerdict is the decision about a requested version. Rejections are
// returned as errors instead.
type VersionVerdict struct {
	Version           string
	Major             int
	Minor             int
	NeedsConfirmation bool
	Reason            string
}

// ValidateVersionFormat accepts major.minor with non-negative integers.
func ValidateVersionFormat(s string) error {
	_, _, err := parseVersion(s)
	return err
}

// MaxMajorVersion returns the highest major version accepted without
// confirmation at the given time.
func MaxMajorVersion(now time.Time) int {
	return now.Year() - majorVersionEpoch
}

// CheckVersionRange validates the format and major range of a version
// without consulting the upstream version list. Majors below 4 are rejected;
// majors above MaxMajorVersion need operator confirmation.
func CheckVersionRange(s string, now time.Time) (VersionVerdict, error) {
	major, minor, err := parseVersion(s)
	if err != nil {
		return VersionVerdict{}, err
	}

	verdict := VersionVerdict{Version: s, Major: major, Minor: minor}
	if major < MinimumMajorVersion {
		return verdict, zerrors.NewValidationError("version", s, fmt.Sprintf("too old: major version must be at least %d", MinimumMajorVersion))
	}
	if ceiling := MaxMajorVersion(now); major > ceiling {
		verdict.NeedsConfirmation = true
		verdict.Reason = fmt.Sprintf("major version %d is newer than the expected ceiling %d", major, ceiling)
	}
	return verdict, nil
}

// CheckVersion runs CheckVersionRange and then requires the version to be
// published upstream.
func CheckVersion(s string, available []string, now time.Time) (VersionVerdict, error) {
	verdict, err := CheckVersionRange(s, now)
	if err != nil {
		return verdict, err
	}
	for _, candidate := range available {
		if candidate == s {
			return verdict, nil
		}
	}
	return verdict, zerrors.NewValidationError("version", s, "not published in the upstream repository")
}

// SortVersions returns the major.minor entries of versions in ascending
// order. Entries that are not major.minor are dropped.
func SortVersions(versions []string) []string {
	parsed := make([]*goversion.Version, 0, len(versions))
	seen := make(map[string]struct{}, len(versions))
	for _, raw := range versions {
		if _, dup := seen[raw]; dup || ValidateVersionFormat(raw) != nil {
			continue
		}
		v, err := goversion.NewVersion(raw)
		if err != nil {
			continue
		}
		seen[raw] = struct{}{}
		parsed = append(parsed, v)
	}
	sort.Sort(goversion.Collection(parsed))

	out := make([]string, len(parsed))
	for i, v := range parsed {
		out[i] = v.Original()
	}
	return out
}

// LatestVersion returns the highest major.minor entry.
func LatestVersion(versions []string) (string, error) {
	sorted := SortVersions(versions)
	if len(sorted) == 0 {
		return "", zerrors.NewValidationError("version", "", "no upstream versions available")
	}
	return sorted[len(sorted)-1], nil
}

func parseVersion(s string) (int, int, error) {
	m := versionPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, zerrors.NewValidationError("version", s, "must be in major.minor form")
	}
	major, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, 0, zerrors.NewValidationError("version", s, "major component is out of range")
	}
	minor, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, 0, zerrors.NewValidationError("version", s, "minor component is out of range")
	}
	return major, minor, nil
}
