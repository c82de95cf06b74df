package migrations

import "embed"

// FS holds the studies schema migrations.
//
//go:embed *.sql
var FS embed.FS
