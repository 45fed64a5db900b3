package migrations

import "embed"

// FS embeds the PostgreSQL schema files, applied in lexical order.
//
//go:embed *.sql
var FS embed.FS
