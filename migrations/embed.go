// Package migrations holds the schema of the analytics database.
package migrations

import "embed"

// FS contains every migration, named <version>_<description>.sql
//
//go:embed *.sql
var FS embed.FS
