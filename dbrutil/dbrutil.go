/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

// Package dbrutil opens github.com/gocraft/dbr connections for the analytics database and
// provides event receivers for query metrics and slow query logging.
package dbrutil

import (
	"fmt"
	"strings"

	"github.com/gocraft/dbr/v2"

	"github.com/acronis/go-analyticsdb"
)

// Open opens a dbr connection according to the config, configures the pool and optionally pings it.
func Open(cfg *analyticsdb.Config, ping bool, eventReceiver dbr.EventReceiver) (*dbr.Connection, error) {
	driverName, dsn := cfg.DriverNameAndDSN()
	if driverName == "" {
		return nil, fmt.Errorf("unsupported dialect %q", cfg.Dialect)
	}
	if eventReceiver == nil {
		eventReceiver = &dbr.NullEventReceiver{}
	}
	conn, err := dbr.Open(driverName, dsn, eventReceiver)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	analyticsdb.SetConnPoolLimits(conn.DB, cfg)
	if ping {
		if err = conn.Ping(); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	}
	return conn, nil
}

// AnnotateQuery prepends an annotation comment to the query.
// Event receivers of this package use the annotation as the query label.
func AnnotateQuery(annotation, query string) string {
	if annotation == "" {
		return query
	}
	return "/* " + strings.ReplaceAll(annotation, "*/", "") + " */ " + query
}

// ParseAnnotation returns the annotation of the query if it starts with "/* <prefix>...".
func ParseAnnotation(query, prefix string) string {
	query = strings.TrimSpace(query)
	if !strings.HasPrefix(query, "/*") {
		return ""
	}
	end := strings.Index(query, "*/")
	if end < 0 {
		return ""
	}
	annotation := strings.TrimSpace(query[2:end])
	if !strings.HasPrefix(annotation, prefix) {
		return ""
	}
	return annotation
}
