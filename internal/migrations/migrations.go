// Package migrations embeds the metadata schema and applies it with golang-migrate.
package migrations

import (
	"database/sql"
	"embed"

	"github.com/JaimeStill/rag-lab/pkg/database"
)

//go:embed sql/*.sql
var files embed.FS

// Up applies every pending migration to db.
func Up(db *sql.DB, driver database.Driver) error {
	return database.Migrate(db, driver, files, "sql")
}
