//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package vecindex

// This file is compiled when building without CGO or with the purego tag.
// It uses a pure Go SQLite implementation without the sqlite-vec extension.
//
// Build command:
//   CGO_ENABLED=0 go build -tags purego ./...
//
// Without the extension, queries scan candidate vectors and compute cosine
// similarity in Go. No C compiler required; suitable for development and
// smaller repositories.
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use
	DriverName = "sqlite"

	// VectorExtensionAvailable indicates if vector extension is available
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
