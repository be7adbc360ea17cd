package db

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Open connects through database/sql and verifies the connection.
// Postgres URLs use the pgx stdlib driver; anything else is treated as
// a SQLite path for local runs.
func Open(databaseURL string) (*sql.DB, error) {
	driver := "pgx"
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("openDB: open %s database: %w", driver, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("openDB: verify %s connection: %w", driver, err)
	}

	return db, nil
}
