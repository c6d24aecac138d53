//go:build !cgo_sqlite

package store

import (
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	// driverName is the SQL driver name to use with database/sql.
	driverName = "sqlite"

	// DriverType identifies the active driver implementation.
	DriverType = "purego"
)
