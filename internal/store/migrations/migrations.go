package migrations

import "embed"

// FS holds the embedded goose migration set applied by Store.Migrate.
//
//go:embed *.sql
var FS embed.FS
