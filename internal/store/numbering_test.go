package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
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

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return New(gdb), mock, db
}

func TestReserveOrdinalAtomicIncrement(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	// the cursor must advance and return its old value in one guarded statement
	mock.ExpectQuery(`UPDATE numbering_configs\s+SET next_value = next_value \+ 1.*WHERE id = \$1 AND next_value <= range_end\s+RETURNING next_value - 1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(41))

	ordinal, err := s.ReserveOrdinal(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, int64(41), ordinal)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReserveOrdinalExhausted(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	// guarded WHERE matched no row: the range is spent
	mock.ExpectQuery(`UPDATE numbering_configs`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))

	_, err := s.ReserveOrdinal(context.Background(), 5)
	assert.ErrorIs(t, err, apperr.ErrExhausted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateConfigSettingsNeverWritesCursorOrDefault(t *testing.T) {
	// the matcher fails the statement outright if the cursor or the default
	// flag appears in the SET list
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherFunc(
		func(expectedSQL, actualSQL string) error {
			if !strings.Contains(actualSQL, expectedSQL) {
				return fmt.Errorf("expected %q within %q", expectedSQL, actualSQL)
			}
			if strings.Contains(actualSQL, `"next_value"`) {
				return fmt.Errorf("settings update wrote the cursor: %s", actualSQL)
			}
			if strings.Contains(actualSQL, `"is_default"`) {
				return fmt.Errorf("settings update wrote the default flag: %s", actualSQL)
			}
			return nil
		})))
	require.NoError(t, err)
	defer db.Close()

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	s := New(gdb)

	// cursor and flag hold values read before a concurrent allocation or
	// default switch; they must not travel back to the row
	cfg := &model.NumberingConfig{
		ID:           4,
		TenantID:     7,
		DocumentType: "Invoice",
		Code:         "FV-2026",
		Title:        "Sales",
		Prefix:       "FV",
		Separator:    "-",
		Width:        4,
		RangeStart:   1,
		RangeEnd:     100,
		NextValue:    42,
		IsDefault:    true,
	}

	mock.ExpectExec(`UPDATE "numbering_configs" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateConfigSettings(context.Background(), cfg))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwitchDefaultTransaction(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "numbering_configs" SET "is_default"=\$1`).
		WithArgs(true, sqlmock.AnyArg(), int64(3), int64(7), "Invoice").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "numbering_configs" SET "is_default"=\$1`).
		WithArgs(false, sqlmock.AnyArg(), int64(7), "Invoice", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	err := s.SwitchDefault(context.Background(), 7, "Invoice", 3)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSwitchDefaultUnknownConfigRollsBack(t *testing.T) {
	s, mock, db := newMockStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "numbering_configs" SET "is_default"=\$1`).
		WithArgs(true, sqlmock.AnyArg(), int64(99), int64(7), "Invoice").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.SwitchDefault(context.Background(), 7, "Invoice", 99)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
