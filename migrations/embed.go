// Package migrations embeds SQL migration files for use by the server and
// integration tests.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
