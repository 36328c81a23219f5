/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package analyticsdb

import (
	"database/sql"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseIsolationLevel(t *testing.T) {
	for name, want := range map[string]sql.IsolationLevel{
		"Read Committed":   sql.LevelReadCommitted,
		"read-committed":   sql.LevelReadCommitted,
		"READ_UNCOMMITTED": sql.LevelReadUncommitted,
		"RepeatableRead":   sql.LevelRepeatableRead,
		"serializable":     sql.LevelSerializable,
	} {
		level, err := ParseIsolationLevel(name)
		require.NoError(t, err, name)
		require.Equal(t, IsolationLevel(want), level, name)
	}

	_, err := ParseIsolationLevel("Linearizable")
	require.EqualError(t, err, "invalid isolation level: Linearizable")
	_, err = ParseIsolationLevel("")
	require.Error(t, err)
}

func TestIsolationLevel_Encoding(t *testing.T) {
	level := IsolationLevel(sql.LevelSerializable)

	data, err := json.Marshal(level)
	require.NoError(t, err)
	require.JSONEq(t, `"Serializable"`, string(data))
	var fromJSON IsolationLevel
	require.NoError(t, json.Unmarshal([]byte(`"read committed"`), &fromJSON))
	require.Equal(t, IsolationLevel(sql.LevelReadCommitted), fromJSON)
	require.Error(t, json.Unmarshal([]byte(`42`), &fromJSON))

	yamlData, err := yaml.Marshal(level)
	require.NoError(t, err)
	require.Equal(t, "Serializable\n", string(yamlData))
	var fromYAML IsolationLevel
	require.NoError(t, yaml.Unmarshal([]byte("Repeatable Read"), &fromYAML))
	require.Equal(t, IsolationLevel(sql.LevelRepeatableRead), fromYAML)

	var fromText IsolationLevel
	require.EqualError(t, fromText.UnmarshalText([]byte("chaos")), "invalid isolation level: chaos")
}
