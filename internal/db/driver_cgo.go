//go:build !purego_sqlite

package db

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	sqliteDriverName    = "sqlite3"
	sqliteDriverPackage = "github.com/mattn/go-sqlite3"
)
