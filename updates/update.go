/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package updates contains the versioned update steps of an analytics installation.
//
// An update is a declaration: Operations builds the ordered list of schema, data, plugin and
// config changes from a Snapshot of the installation, and the updater package executes them.
// AfterApply runs once the executor has applied every operation successfully.
package updates

import (
	"context"

	"github.com/acronis/go-analyticsdb/migration"
)

// IdentityPrefix is prepended to the version of an update to form its identity in the tracking table.
const IdentityPrefix = "updates/"

// Geolocation provider ids.
const (
	LocationProviderDefault         = "default"
	LocationProviderGeoIPPecl       = "geoip_pecl"
	LocationProviderGeoIPPHP        = "geoip_php"
	LocationProviderGeoIPServerBase = "geoip_serverbased"
)

// LocationProviderStore reads and switches the active geolocation provider of a live installation.
type LocationProviderStore interface {
	LocationProvider(ctx context.Context) (string, error)
	SetLocationProvider(ctx context.Context, id string) error
}

// Update is a single versioned update step.
type Update interface {
	// Version returns the version the update brings the installation to.
	Version() string

	// Operations returns the ordered operations of the update. It must not perform I/O.
	Operations(snapshot *Snapshot, factory *migration.Factory) []migration.Operation

	// AfterApply is called after all operations were applied successfully.
	AfterApply(ctx context.Context, providers LocationProviderStore) error
}

// Identity returns the identity under which the update is recorded as applied.
func Identity(u Update) string {
	return IdentityPrefix + u.Version()
}

// IsLegacyLocationProvider reports whether the provider id is one of the deprecated GeoIP legacy providers.
func IsLegacyLocationProvider(id string) bool {
	switch id {
	case LocationProviderGeoIPPecl, LocationProviderGeoIPPHP, LocationProviderGeoIPServerBase:
		return true
	}
	return false
}
