package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userColumns = []string{"id", "email", "password_hash", "first_name", "last_name", "role", "created_at"}

const (
	insertQ  = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*email,\s*password_hash,\s*first_name,\s*last_name,\s*role,\s*created_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7\)\s*$`
	byEmailQ = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*first_name,\s*last_name,\s*role,\s*created_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1$`
	byIDQ    = `(?s)^SELECT\s+id,\s*email,\s*password_hash,\s*first_name,\s*last_name,\s*role,\s*created_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1$`
	listQ    = `(?s)^SELECT\s+.+\s+FROM\s+users\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+\$1\s+OFFSET\s+\$2$`
	updateQ  = `^UPDATE\s+users\s+SET\s+role\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`
)

func newRepoWithMock(t *testing.T) (*SQLRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewSQLRepository(db), mock, db
}

var created = time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

func aliceRow() *sqlmock.Rows {
	return sqlmock.NewRows(userColumns).
		AddRow("u-1", "alice@example.com", "$argon2id$hash", "Alice", "Liddell", "regular", created)
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).
		WithArgs("u-1", "alice@example.com", "$argon2id$hash", "Alice", "Liddell", "regular", created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{
		ID: "u-1", Email: "alice@example.com", PasswordHash: "$argon2id$hash",
		FirstName: "Alice", LastName: "Liddell", Role: models.RoleRegular, CreatedAt: created,
	}
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Same(t, u, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_UniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"postgres", &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}},
		{"sqlite", sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			mock.ExpectExec(insertQ).WillReturnError(tt.err)

			_, err := repo.Create(context.Background(), &models.User{ID: "u-1", Email: "alice@example.com", Role: models.RoleRegular})
			assert.ErrorIs(t, err, common.ErrorAlreadyExists)
		})
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: "23502", Message: "not null"})

	_, err := repo.Create(context.Background(), &models.User{ID: "u-1"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
	assert.Regexp(t, regexp.MustCompile(`^db error: `), err.Error())
}

func TestGetUserByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byEmailQ).WithArgs("alice@example.com").WillReturnRows(aliceRow())

	got, err := repo.GetUserByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, &models.User{
		ID: "u-1", Email: "alice@example.com", PasswordHash: "$argon2id$hash",
		FirstName: "Alice", LastName: "Liddell", Role: models.RoleRegular, CreatedAt: created,
	}, got)
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(byEmailQ).WithArgs("ghost@example.com").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetUserByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetUserByID(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(byIDQ).WithArgs("u-1").WillReturnRows(aliceRow())

		got, err := repo.GetUserByID(context.Background(), "u-1")
		require.NoError(t, err)
		assert.Equal(t, "alice@example.com", got.Email)
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(byIDQ).WithArgs("u-2").WillReturnRows(sqlmock.NewRows(userColumns))

		_, err := repo.GetUserByID(context.Background(), "u-2")
		assert.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectQuery(byIDQ).WithArgs("u-1").WillReturnError(errors.New("db down"))

		_, err := repo.GetUserByID(context.Background(), "u-1")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
		assert.Regexp(t, `db error: .*db down`, err.Error())
	})
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := aliceRow().AddRow("u-2", "bob@example.com", "h", "Bob", "", "admin", created.Add(time.Minute))
	mock.ExpectQuery(listQ).WithArgs(10, 0).WillReturnRows(rows)

	got, err := repo.List(context.Background(), 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "u-1", got[0].ID)
	assert.Equal(t, models.RoleAdmin, got[1].Role)
}

func TestList_RowError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := aliceRow().RowError(0, errors.New("broken row"))
	mock.ExpectQuery(listQ).WithArgs(10, 0).WillReturnRows(rows)

	_, err := repo.List(context.Background(), 10, 0)
	assert.Regexp(t, `db error: .*broken row`, err.Error())
}

func TestUpdateRole(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(updateQ).WithArgs("admin", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
		require.NoError(t, repo.UpdateRole(context.Background(), "u-1", models.RoleAdmin))
	})

	t.Run("missing user", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(updateQ).WithArgs("admin", "nope").WillReturnResult(sqlmock.NewResult(0, 0))
		assert.ErrorIs(t, repo.UpdateRole(context.Background(), "nope", models.RoleAdmin), common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock, db := newRepoWithMock(t)
		defer db.Close()

		mock.ExpectExec(updateQ).WithArgs("admin", "u-1").WillReturnError(errors.New("db err"))
		err := repo.UpdateRole(context.Background(), "u-1", models.RoleAdmin)
		assert.Regexp(t, `db error: .*db err`, err.Error())
	})
}

func TestUpdatePasswordHash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(`^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$1\s+WHERE\s+id\s*=\s*\$2$`).
		WithArgs("$argon2id$new", "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePasswordHash(context.Background(), "u-1", "$argon2id$new"))
	require.NoError(t, mock.ExpectationsWereMet())
}
