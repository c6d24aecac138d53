//go:build cgo_sqlite

package store

import (
	_ "github.com/mattn/go-sqlite3" // CGO SQLite driver
)

// Build with: CGO_ENABLED=1 go build -tags cgo_sqlite
const (
	// driverName is the SQL driver name to use with database/sql.
	driverName = "sqlite3"

	// DriverType identifies the active driver implementation.
	DriverType = "cgo"
)
