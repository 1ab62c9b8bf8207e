// Package migrations embeds the journal schema so the binary can migrate
// without the SQL files on disk.
package migrations

import "embed"

// FS holds every *.up.sql / *.down.sql at its root.
//
//go:embed *.sql
var FS embed.FS
