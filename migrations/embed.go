// Package migrations holds the embedded SQL migrations for the api service.
package migrations

import "embed"

// Files contains every .sql file in this directory (order matters: 001, 002, ...).
//
//go:embed *.sql
var Files embed.FS
