//go:build purego_sqlite

// Pure Go SQLite driver, selected with: go build -tags purego_sqlite
package db

import (
	_ "modernc.org/sqlite"
)

const (
	sqliteDriverName    = "sqlite"
	sqliteDriverPackage = "modernc.org/sqlite"
)
