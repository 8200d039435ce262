package connpool_test

import (
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/yuku/connpool"
)

const testSchema = `
CREATE TABLE IF NOT EXISTS players (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS visits (
	player_id INTEGER NOT NULL,
	count INTEGER NOT NULL DEFAULT 0
);
`

// sqliteConfig returns a complete configuration backed by a database file
// in a per-test temporary directory.
func sqliteConfig(t *testing.T) *connpool.Config {
	t.Helper()

	cfg := connpool.DefaultConfig()
	cfg.Driver = "sqlite3"
	cfg.Database = filepath.Join(t.TempDir(), "test.db")
	cfg.Username = "test"
	cfg.Password = "test"
	cfg.MaxPoolSize = 4
	return cfg
}

// schemaFS returns a filesystem holding script as database.sql.
func schemaFS(script string) fstest.MapFS {
	return fstest.MapFS{
		connpool.DefaultScriptName: &fstest.MapFile{Data: []byte(script)},
	}
}
