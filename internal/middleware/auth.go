package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gestion-service/internal/authz"
	"gestion-service/internal/model"
	"gestion-service/pkg/jwtutil"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

// AuthMiddleware validates the JWT token from the Authorization header and
// stores the caller identity in the request context.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		// Get the Authorization header
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing authorization token"})
		}

		// Check if it's a Bearer token
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid authorization format, expected Bearer token"})
		}

		// Validate the token
		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or expired token"})
		}

		// Store caller identity in context for later use
		c.Set("user_id", claims.UserID)
		c.Set("email", claims.Email)
		c.Set("category", claims.Category)
		if claims.TenantID != nil {
			c.Set("tenant_id", *claims.TenantID)
		}
		if claims.RoleID != nil {
			c.Set("role_id", *claims.RoleID)
		}

		// Bind caller fields to the request-scoped logger
		log = log.With(
			zap.Uint("user_id", claims.UserID),
			zap.String("category", claims.Category),
		)
		if claims.TenantID != nil {
			log = log.With(zap.Uint("tenant_id", *claims.TenantID))
		}
		c.Set("logger", log)

		return next(c)
	}
}

// RequireTenantContext rejects requests whose token carries no tenant. Global
// operators are exempt since they act across tenants by design of the
// authorization rules.
func RequireTenantContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if category, _ := c.Get("category").(string); category == string(model.CategorySuperAdmin) {
			return next(c)
		}

		tenantID, ok := c.Get("tenant_id").(uint)
		if !ok || tenantID == 0 {
			logger.FromContext(c).Warn("Missing tenant context")
			prometheus.RecordError("missing_tenant_context")
			return c.JSON(http.StatusForbidden, echo.Map{
				"error":   "tenant context required",
				"message": "the authenticated user is not assigned to a tenant",
			})
		}

		return next(c)
	}
}

// CallerFrom builds the caller identity evaluated by the authorization guard
// from values stored by AuthMiddleware.
func CallerFrom(c echo.Context) authz.Caller {
	caller := authz.Caller{}
	if v, ok := c.Get("user_id").(uint); ok {
		caller.UserID = v
	}
	if v, ok := c.Get("category").(string); ok {
		caller.Category = model.UserCategory(v)
	}
	if v, ok := c.Get("tenant_id").(uint); ok {
		caller.TenantID = &v
	}
	if v, ok := c.Get("role_id").(uint); ok {
		caller.RoleID = &v
	}
	return caller
}
