// Package migrations embeds SQL migration files for the Postgres vector store.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
// The placeholder {{dimensions}} is replaced with the embedding size.
//
//go:embed *.sql
var FS embed.FS
