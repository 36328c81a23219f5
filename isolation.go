/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// IsolationLevel is a sql.IsolationLevel configured by name.
// Names are matched ignoring case, spaces, dashes and underscores,
// so "Read Committed", "read-committed" and "READ_COMMITTED" are equal.
type IsolationLevel sql.IsolationLevel

var isolationLevelsByName = map[string]sql.IsolationLevel{
	"readuncommitted": sql.LevelReadUncommitted,
	"readcommitted":   sql.LevelReadCommitted,
	"repeatableread":  sql.LevelRepeatableRead,
	"serializable":    sql.LevelSerializable,
}

// ParseIsolationLevel parses the name of a transaction isolation level supported by MySQL.
func ParseIsolationLevel(name string) (IsolationLevel, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '_':
			return -1
		}
		return r
	}, strings.ToLower(name))
	level, ok := isolationLevelsByName[normalized]
	if !ok {
		return IsolationLevel(sql.LevelDefault), fmt.Errorf("invalid isolation level: %s", name)
	}
	return IsolationLevel(level), nil
}

// String returns the name used by database/sql.
func (il IsolationLevel) String() string {
	return sql.IsolationLevel(il).String()
}

// UnmarshalText implements encoding.TextUnmarshaler, which is used by mapstructure.TextUnmarshallerHookFunc.
func (il *IsolationLevel) UnmarshalText(text []byte) error {
	level, err := ParseIsolationLevel(string(text))
	if err != nil {
		return err
	}
	*il = level
	return nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (il *IsolationLevel) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid isolation level: %w", err)
	}
	return il.UnmarshalText([]byte(s))
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (il *IsolationLevel) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid isolation level: %w", err)
	}
	return il.UnmarshalText([]byte(s))
}

// MarshalJSON implements json.Marshaler.
func (il IsolationLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(il.String())
}

// MarshalYAML implements yaml.Marshaler.
func (il IsolationLevel) MarshalYAML() (interface{}, error) {
	return il.String(), nil
}
