// Package migrations embeds the SQL schema migrations for the contacts API.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
