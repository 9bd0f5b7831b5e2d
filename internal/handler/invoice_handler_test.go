package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"gestion-service/internal/audit"
	"gestion-service/internal/authz"
	"gestion-service/internal/fiscal"
	"gestion-service/internal/numbering"
	"gestion-service/internal/store"
	"gestion-service/pkg/database"
)

// newMockEnv points the handler package and the database global at a
// sqlmock-backed connection.
func newMockEnv(t *testing.T) (sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gdb, err := gorm.Open(postgres.New(postgres.Config{
		Conn:                 db,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	database.DB = gdb
	s := store.New(gdb)
	Initialize(
		authz.NewGuard(s),
		numbering.NewAllocator(s),
		fiscal.NewCalculator([]uint{1}),
		audit.NewRecorder(gdb, zap.NewNop()),
		s,
	)
	return mock, func() { db.Close() }
}

func newInvoiceContext(t *testing.T, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint(9))
	c.Set("category", "admin")
	c.Set("tenant_id", uint(7))
	return c, rec
}

func expectClientLookup(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT \* FROM "clients"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "tenant_id", "allow_sales"}).
			AddRow(3, 7, true))
}

func expectReservation(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT \* FROM "numbering_configs"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "tenant_id", "document_type", "code", "title", "prefix",
			"separator", "width", "is_default", "range_start", "range_end", "next_value",
		}).AddRow(4, 7, "Invoice", "FV-2026", "Sales", "FV", "-", 4, true, 1, 100, 80))
	mock.ExpectQuery(`UPDATE numbering_configs`).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(80))
}

func TestCreateInvoicePairsReservationWithInsert(t *testing.T) {
	mock, closeDB := newMockEnv(t)
	defer closeDB()

	expectClientLookup(mock)
	mock.ExpectBegin()
	expectReservation(mock)
	mock.ExpectQuery(`INSERT INTO "invoices"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(12))
	mock.ExpectCommit()

	c, rec := newInvoiceContext(t, `{"client_id":3,"total":150000}`)
	require.NoError(t, CreateInvoice(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"FV-0080"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateInvoiceInsertFailureRollsBackReservation(t *testing.T) {
	mock, closeDB := newMockEnv(t)
	defer closeDB()

	// the insert fails after the cursor advance: the rollback must take the
	// advance back with it, so the ordinal is neither burned nor attached to
	// a document that was never stored
	expectClientLookup(mock)
	mock.ExpectBegin()
	expectReservation(mock)
	mock.ExpectQuery(`INSERT INTO "invoices"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	c, rec := newInvoiceContext(t, `{"client_id":3,"total":150000}`)
	require.NoError(t, CreateInvoice(c))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
