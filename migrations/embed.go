// Package migrations embeds the SQLite schema so the binary can migrate itself.
package migrations

import "embed"

// FS holds the NNN_name.sql migration files
//
//go:embed *.sql
var FS embed.FS
