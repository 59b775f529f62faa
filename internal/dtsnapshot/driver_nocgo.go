//go:build !cgo

package dtsnapshot

import (
	_ "modernc.org/sqlite" // pure-Go fallback driver for CGO_ENABLED=0 builds
)

// driverName is the database/sql driver registered for this build.
const driverName = "sqlite"
