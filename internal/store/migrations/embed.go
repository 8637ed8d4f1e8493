// Package migrations embeds the goose SQL migration files for the schema
// described in SPEC_FULL.md / spec.md §6.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
