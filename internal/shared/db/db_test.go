package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectSQLite_Pragmas(t *testing.T) {
	for name, path := range map[string]string{
		"memory": ":memory:",
		"file":   filepath.Join(t.TempDir(), "settlement.db"),
	} {
		t.Run(name, func(t *testing.T) {
			conn, err := ConnectSQLite(path)
			require.NoError(t, err)
			t.Cleanup(func() { conn.Close() })

			var timeout int64
			require.NoError(t, conn.QueryRow(`PRAGMA busy_timeout`).Scan(&timeout))
			assert.Equal(t, BusyTimeout.Milliseconds(), timeout)

			var fk int
			require.NoError(t, conn.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
			assert.Equal(t, 1, fk)
		})
	}
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "a.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("a.db"))
	assert.Equal(t, "file:a.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", sqliteDSN("file:a.db?mode=rwc"))
}
