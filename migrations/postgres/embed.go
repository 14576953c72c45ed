// Package migrations embeds the Postgres schema files applied at startup
// when storage.driver is postgres and --migrate is set.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
