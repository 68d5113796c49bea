//go:build purego || !sqlite_cgo

package storage

// Default build. Uses the pure Go modernc.org/sqlite driver:
//
//	CGO_ENABLED=0 go build ./...

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
