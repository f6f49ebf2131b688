package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/calendar-ai-api/internal/models"
)

func newUserRepoSQLMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPostgresUserRepositoryFindByEmailLowercases(t *testing.T) {
	db, mock, cleanup := newUserRepoSQLMock(t)
	defer cleanup()

	repo := NewPostgresUserRepository(db)
	rows := sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}).
		AddRow("user-1", "Alex", "alex@example.com", "hash", time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("alex@example.com").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Alex@Example.COM")
	require.NoError(t, err)
	assert.Equal(t, "user-1", user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newUserRepoSQLMock(t)
	defer cleanup()

	repo := NewPostgresUserRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email, password_hash, created_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "created_at"}))

	_, err := repo.FindByEmail(context.Background(), "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUserRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newUserRepoSQLMock(t)
	defer cleanup()

	repo := NewPostgresUserRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Name: "Alex", Email: "Alex@Example.com", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "alex@example.com", user.Email)
	assert.False(t, user.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}
