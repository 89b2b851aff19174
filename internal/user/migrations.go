package user

import (
	"database/sql"
	"embed"

	"github.com/nao1215/moneyhub/pkg/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate はユーザーサービスのスキーママイグレーションを適用する。
func Migrate(db *sql.DB) error {
	return migration.Run(db, migrationFiles, "migrations")
}
