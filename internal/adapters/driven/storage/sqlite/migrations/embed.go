// Package migrations holds the numbered schema files applied by the sqlite
// store on open.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
