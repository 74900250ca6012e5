// Package migrations embeds the SQL schema so the binary migrates itself.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
