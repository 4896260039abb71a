// Package migrations compiles the service's SQL migrations into the
// binary, so a deployed blueprintd never depends on loose .sql files.
//
// Importing this package (blank import from main) is what arms
// database.Migrate; without it the migration set is empty.
package migrations

import (
	"embed"

	"github.com/nerrad567/gray-logic-blueprints/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
