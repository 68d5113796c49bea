//go:build sqlite_cgo && !purego

package storage

// Compiled with the sqlite_cgo tag. Uses github.com/mattn/go-sqlite3, which
// needs a C compiler:
//
//	CGO_ENABLED=1 go build -tags sqlite_cgo ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
