/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import "strings"

// TablePrefix is the installation-wide prefix prepended to every table name (e.g. "matomo_").
type TablePrefix string

// Prefix returns the physical name of the table.
func (p TablePrefix) Prefix(table string) string {
	return string(p) + table
}

// Unprefix strips the prefix from the physical table name.
// Names without the prefix are returned unchanged.
func (p TablePrefix) Unprefix(table string) string {
	if p == "" {
		return table
	}
	return strings.TrimPrefix(table, string(p))
}

// Owns reports whether the physical table name belongs to this installation.
func (p TablePrefix) Owns(table string) bool {
	return strings.HasPrefix(table, string(p))
}
