package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caraka20/tutontrack/internal/models"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestAdminRepositoryFindByUsername(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminRepository(db)

	rows := sqlmock.NewRows([]string{"id", "username", "password_hash", "role", "is_active", "created_at"}).
		AddRow(int64(1), "owner", "hash", string(models.RoleOwner), true, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, username, password_hash, role, is_active, created_at FROM admins WHERE username = $1 LIMIT 1")).
		WithArgs("owner").
		WillReturnRows(rows)

	admin, err := repo.FindByUsername(context.Background(), "owner")
	require.NoError(t, err)
	assert.Equal(t, models.RoleOwner, admin.Role)
	assert.True(t, admin.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAdminRepository(db)

	mock.ExpectQuery("FROM admins WHERE id = \\$1").WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
