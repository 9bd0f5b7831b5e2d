package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListRolesDeniedForStaff(t *testing.T) {
	// staff cannot manage roles, so listing them is denied the same way
	// reading a single role is
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/roles", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user_id", uint(3))
	c.Set("category", "staff")
	c.Set("tenant_id", uint(7))

	require.NoError(t, ListRoles(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
