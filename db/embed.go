// Package db embeds the SQL files shipped with the binary.
package db

import _ "embed"

// Schema holds the DDL for the order workflow tables. It is applied
// idempotently on startup by repository.RunMigrations.
//
//go:embed migrations/001_schema.sql
var Schema string
