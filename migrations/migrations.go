// Package migrations embeds the SQL schema applied at startup and in tests.
package migrations

import "embed"

// FS holds the ordered *.sql migration files.
//
//go:embed *.sql
var FS embed.FS
