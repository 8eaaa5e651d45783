// Package migrations embeds the SQL schema so both binaries can apply it
// without a working-directory dependency.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
