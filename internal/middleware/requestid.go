package middleware

import (
	"gestion-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const RequestIDKey = "X-Request-ID"

// RequestIDMiddleware tags each request with a unique id and binds a
// request-scoped logger carrying it.
func RequestIDMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get(RequestIDKey)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(RequestIDKey, requestID)
		c.Response().Header().Set(RequestIDKey, requestID)

		log := logger.FromContext(c).With(zap.String("request_id", requestID))
		c.Set("logger", log)

		return next(c)
	}
}
