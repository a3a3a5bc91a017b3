// Package migrations embeds the SQL schema migrations.
package migrations

import "embed"

// FS holds every numbered *.up.sql and *.down.sql migration.
//
//go:embed *.sql
var FS embed.FS
