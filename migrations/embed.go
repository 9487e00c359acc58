// Package migrations embeds the metadata store schema.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
