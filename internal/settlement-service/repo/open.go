package repo

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/radieske/sports-bet-settlement/internal/shared/db"
)

// Open conecta no driver configurado (postgres | sqlite) e aplica o schema.
// O *sql.DB retornado deve ser fechado pelo chamador.
func Open(ctx context.Context, driver, postgresDSN, sqlitePath string) (*Store, *sql.DB, error) {
	var (
		conn  *sql.DB
		store *Store
		err   error
	)
	switch driver {
	case "postgres":
		if conn, err = db.ConnectPostgres(postgresDSN); err != nil {
			return nil, nil, err
		}
		store = NewPostgres(conn)
	case "sqlite":
		if conn, err = db.ConnectSQLite(sqlitePath); err != nil {
			return nil, nil, err
		}
		store = NewSQLite(conn)
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}

	if err := store.Migrate(ctx); err != nil {
		conn.Close()
		return nil, nil, err
	}
	return store, conn, nil
}
