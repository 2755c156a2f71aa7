package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/filmkeeper/internal/dbx"
	"github.com/dmitrijs2005/filmkeeper/internal/server/migrations"
	"github.com/dmitrijs2005/filmkeeper/internal/server/repositories/users"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRepositoryManager is used for local development and tests.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, "sqlite3", migrations.SQLiteDir)
}
