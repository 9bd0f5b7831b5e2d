package validation

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	return gdb, mock
}

func TestAssertUniqueOk(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "clients" WHERE \(tenant_id = \$1 AND document_number = \$2\)`).
		WithArgs(int64(7), "900373115").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := AssertUnique(db, &model.Client{}, 7, "document_number", "900373115", 0)
	assert.NoError(t, err)
}

func TestAssertUniqueConflict(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "clients"`).
		WithArgs(int64(7), "900373115").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	err := AssertUnique(db, &model.Client{}, 7, "document_number", "900373115", 0)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestAssertUniqueExcludesSelfOnUpdate(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "clients" WHERE \(tenant_id = \$1 AND document_number = \$2\) AND id <> \$3`).
		WithArgs(int64(7), "900373115", int64(12)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	err := AssertUnique(db, &model.Client{}, 7, "document_number", "900373115", 12)
	assert.NoError(t, err)
}
