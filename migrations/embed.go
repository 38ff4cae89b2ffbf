// Package migrations embeds the history database schema into the binary.
package migrations

import "embed"

// FS holds every *.sql migration file of this directory.
//
//go:embed *.sql
var FS embed.FS

// Dir is the directory of FS that holds the migration files.
const Dir = "."
