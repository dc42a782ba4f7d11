package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopauth/internal/models"
)

func newSQLMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

var userCols = []string{
	"id", "name", "email", "password_hash", "role",
	"is_active", "email_verified", "last_login", "created_at", "updated_at",
}

func TestUserRepository_Create(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs(sqlmock.AnyArg(), "Alice", "alice@example.com", "hash", "user", true, false, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	u := &models.User{Name: "Alice", Email: "alice@example.com", PasswordHash: "hash", Role: models.RoleUser, IsActive: true, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, repo.Create(context.Background(), u))
	assert.NotEmpty(t, u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_CreateDBError(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`INSERT INTO users`).WillReturnError(errors.New("db down"))

	err := repo.Create(context.Background(), &models.User{Email: "alice@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDuplicate)
	assert.Contains(t, err.Error(), "db down")
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM users WHERE email = \$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow("u-1", "Alice", "alice@example.com", "hash", "admin", true, false, now, now, now))

	u, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", u.ID)
	assert.Equal(t, models.RoleAdmin, u.Role)
	require.NotNil(t, u.LastLogin)
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_UpdateLastLoginOnlyActive(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectExec(`UPDATE users SET last_login = \$1, updated_at = \$1 WHERE id = \$2 AND is_active = TRUE`).
		WithArgs(now, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateLastLogin(context.Background(), "u-1", now)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_UpdatePassword(t *testing.T) {
	db, mock := newSQLMock(t)
	repo := NewUserRepository(db)
	now := time.Now()

	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WithArgs("new-hash", now, "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", "new-hash", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
