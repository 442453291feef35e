// Package migrations embeds the Todo Core schema migrations into the binary.
//
// Import it for side effects from the entrypoint:
//
//	import _ "github.com/nerrad567/todo-core/migrations"
package migrations

import (
	"embed"

	"github.com/nerrad567/todo-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
