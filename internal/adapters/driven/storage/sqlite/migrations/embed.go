// Package migrations carries the SQL schema migrations for the store.
package migrations

import "embed"

// FS holds the numbered migration files, applied in order on open.
//
//go:embed *.sql
var FS embed.FS
