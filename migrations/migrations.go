// Package migrations embeds the SQL schema files for each database backend.
package migrations

import "embed"

// FS holds sqlite/ and postgres/ migration directories.
//
//go:embed sqlite/*.sql postgres/*.sql
var FS embed.FS
