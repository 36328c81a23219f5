/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package updates

import (
	"time"

	"github.com/acronis/go-analyticsdb"
)

// User is a user record as it is stored before the update.
type User struct {
	Login     string
	TokenAuth string
}

// Snapshot is the read-only state of an installation that updates are declared against.
// It is loaded once before the operations are built, so building them performs no I/O.
type Snapshot struct {
	Prefix analyticsdb.TablePrefix

	// Tables holds the prefixed names of the installed tables in the order they were listed.
	Tables []string

	// Columns maps a prefixed table name to the names of its columns.
	Columns map[string][]string

	// Users holds the user records read while the legacy token column exists, ordered by login.
	// TokenAuth is empty for users without a legacy token; declarations skip them.
	Users []User

	InstalledPlugins []string
	ActivatedPlugins []string

	// LocationProvider is the id of the active geolocation provider.
	LocationProvider string

	// Config maps a config section to its key/value pairs.
	Config map[string]map[string]string

	// Now is the time used for creation dates written by the update.
	Now time.Time
}

// HasColumn reports whether the unprefixed table has the column.
func (s *Snapshot) HasColumn(table, column string) bool {
	return contains(s.Columns[s.Prefix.Prefix(table)], column)
}

// IsPluginInstalled reports whether the plugin is installed.
func (s *Snapshot) IsPluginInstalled(plugin string) bool {
	return contains(s.InstalledPlugins, plugin)
}

// IsPluginActivated reports whether the plugin is activated.
func (s *Snapshot) IsPluginActivated(plugin string) bool {
	return contains(s.ActivatedPlugins, plugin)
}

// ConfigValue returns the config value or an empty string if it is not set.
func (s *Snapshot) ConfigValue(section, key string) string {
	return s.Config[section][key]
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
