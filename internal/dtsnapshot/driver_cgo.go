//go:build cgo

package dtsnapshot

import (
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver, primary per SPEC_FULL.md §3
)

// driverName is the database/sql driver registered for this build.
const driverName = "sqlite3"
