package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion-service/internal/apperr"
)

func TestRoleByIDNotFound(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).
		WithArgs(int64(42), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "level"}))

	_, err := s.RoleByID(context.Background(), 42)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRoleByIDFound(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT \* FROM "roles"`).
		WithArgs(int64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "level"}).AddRow(1, "cashier", 3))

	role, err := s.RoleByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "cashier", role.Name)
	assert.Equal(t, 3, role.Level)
}

func TestHasGrant(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "role_permissions" WHERE role_id = \$1 AND permission_id = \$2`).
		WithArgs(int64(1), int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	granted, err := s.HasGrant(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.True(t, granted)
}

func TestRoleInUse(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE role_id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	inUse, err := s.RoleInUse(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, inUse)
}
