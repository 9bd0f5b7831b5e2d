package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gestion-service/internal/apperr"
	"gestion-service/internal/audit"
	"gestion-service/internal/authz"
	"gestion-service/internal/fiscal"
	"gestion-service/internal/numbering"
	"gestion-service/internal/store"
)

// Package-level collaborators, set once at startup. Handlers stay free
// functions on echo.Context like the rest of the request layer.
var (
	guard     *authz.Guard
	allocator *numbering.Allocator
	calc      *fiscal.Calculator
	auditor   *audit.Recorder
	st        *store.Store
)

// Initialize wires the handler package. Must be called before any route is
// served.
func Initialize(g *authz.Guard, a *numbering.Allocator, c *fiscal.Calculator, r *audit.Recorder, s *store.Store) {
	guard = g
	allocator = a
	calc = c
	auditor = r
	st = s
}

// respondError translates a core error into the HTTP response for it. Internal
// errors are logged with detail but returned opaque.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	status := apperr.StatusOf(err)
	if status == http.StatusInternalServerError {
		log.Error("Request failed", zap.Error(err))
		return c.JSON(status, echo.Map{"error": "internal error"})
	}
	log.Warn("Request rejected", zap.Error(err), zap.Int("status", status))
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// callerTenant returns the tenant the request operates on: the caller's own
// tenant, or the explicit target a global operator named.
func callerTenant(c echo.Context, explicit *uint) uint {
	if explicit != nil && *explicit != 0 {
		return *explicit
	}
	if v, ok := c.Get("tenant_id").(uint); ok {
		return v
	}
	return 0
}

func actorID(c echo.Context) *uint {
	if v, ok := c.Get("user_id").(uint); ok {
		return &v
	}
	return nil
}
