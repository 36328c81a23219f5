/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updates

import (
	"fmt"
	"sort"

	"golang.org/x/mod/semver"
)

// All returns every known update ordered by version.
func All() []Update {
	all := []Update{
		&Update400B1{},
	}
	sort.SliceStable(all, func(i, j int) bool {
		return CompareVersions(all[i].Version(), all[j].Version()) < 0
	})
	return all
}

// Pending returns the known updates newer than the installed version, ordered by version.
func Pending(installedVersion string) ([]Update, error) {
	if !IsValidVersion(installedVersion) {
		return nil, fmt.Errorf("invalid installed version %q", installedVersion)
	}
	var pending []Update
	for _, u := range All() {
		if CompareVersions(u.Version(), installedVersion) > 0 {
			pending = append(pending, u)
		}
	}
	return pending, nil
}

// IsValidVersion reports whether v is a semantic version such as "4.0.0-b1" (a leading "v" is optional).
func IsValidVersion(v string) bool {
	return semver.IsValid(canonical(v))
}

// CompareVersions returns -1, 0 or +1 depending on whether a < b, a == b or a > b.
// Pre-release versions ("4.0.0-b1") sort before the release ("4.0.0").
func CompareVersions(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

func canonical(v string) string {
	if v == "" || v[0] == 'v' {
		return v
	}
	return "v" + v
}
