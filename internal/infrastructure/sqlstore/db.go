package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"auction-house/internal/config"

	_ "github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"
)

// Dialect isolates the SQL differences between the supported engines.
type Dialect struct {
	Name string
	// lockSuffix is appended to the row lock query inside a transaction.
	lockSuffix string
	schema     []string
}

var (
	MySQL = Dialect{
		Name:       "mysql",
		lockSuffix: " FOR UPDATE",
		schema:     mysqlSchema,
	}
	SQLite = Dialect{
		Name:   "sqlite",
		schema: sqliteSchema,
	}
)

// DialectFor returns the dialect registered under name.
func DialectFor(name string) (Dialect, error) {
	switch name {
	case MySQL.Name:
		return MySQL, nil
	case SQLite.Name:
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// Open connects to the configured database, checks it is reachable and
// returns the handle together with its dialect.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	var db *sql.DB
	if dialect.Name == SQLite.Name {
		db, err = OpenSQLite(cfg.DSN)
	} else {
		db, err = OpenMySQL(cfg)
	}
	if err != nil {
		return nil, Dialect{}, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("pinging %s: %w", dialect.Name, err)
	}
	return db, dialect, nil
}

// OpenMySQL opens a pooled MySQL handle. The DSN must carry parseTime=true.
func OpenMySQL(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("mysql", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening mysql: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	return db, nil
}

// OpenSQLite opens a SQLite database and configures pragmas.
// The pool is pinned to a single connection: transactions are serialized
// and ":memory:" databases survive for the life of the handle.
func OpenSQLite(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return db, nil
}
