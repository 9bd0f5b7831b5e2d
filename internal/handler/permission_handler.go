package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"gestion-service/internal/middleware"
	"gestion-service/internal/model"
	"gestion-service/pkg/database"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

// ListPermissions returns the permission catalog. Permissions are global and
// readable by any authenticated caller; only their grants are tenant-scoped.
func ListPermissions(c echo.Context) error {
	log := logger.FromContext(c)

	defer prometheus.TrackDBOperation("query")(time.Now())
	var perms []model.Permission
	if result := database.GetDB().Order("id").Find(&perms); result.Error != nil {
		log.Error("Failed to list permissions", zap.Error(result.Error))
		prometheus.RecordError("permission_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve permissions"})
	}

	return c.JSON(http.StatusOK, perms)
}

// CreatePermission adds a permission to the catalog. Global operators only:
// the catalog is shared by every tenant.
func CreatePermission(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	if caller.Category != model.CategorySuperAdmin {
		prometheus.RecordAuthzDenial("manage_permissions")
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only global operators may create permissions"})
	}

	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse permission creation request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		prometheus.RecordError("incomplete_permission_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	var count int64
	if err := database.GetDB().Model(&model.Permission{}).
		Where("name = ?", req.Name).Count(&count).Error; err != nil {
		log.Error("Failed to check permission name", zap.Error(err))
		prometheus.RecordError("permission_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "permission creation failed"})
	}
	if count > 0 {
		prometheus.RecordError("duplicate_permission_name")
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission name already exists"})
	}

	perm := model.Permission{Name: req.Name, Description: req.Description}
	if result := database.GetDB().Create(&perm); result.Error != nil {
		log.Error("Failed to create permission", zap.Error(result.Error))
		prometheus.RecordError("permission_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "permission creation failed"})
	}

	log.Info("Permission created", zap.Uint("id", perm.ID), zap.String("name", perm.Name))
	return c.JSON(http.StatusCreated, perm)
}
