// Package assets embeds the files shipped inside the binaries: database migrations and email templates.
package assets

import "embed"

//go:embed migrations/*.sql templates/email/*
var FS embed.FS

// MigrationsDir is the goose migrations directory within FS.
const MigrationsDir = "migrations"
