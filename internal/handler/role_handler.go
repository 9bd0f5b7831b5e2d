package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"gestion-service/internal/audit"
	"gestion-service/internal/authz"
	"gestion-service/internal/middleware"
	"gestion-service/internal/model"
	"gestion-service/pkg/database"
	"gestion-service/pkg/logger"
	"gestion-service/prometheus"
)

type roleRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Level       int    `json:"level"`
	TenantID    *uint  `json:"tenant_id,omitempty"`
}

// ListRoles returns the roles visible to the caller: global roles plus the
// roles owned by the caller's tenant.
func ListRoles(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	// Staff cannot read roles through GetRole either; the list applies the
	// same rule.
	if caller.Category == model.CategoryStaff {
		prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
		return c.JSON(http.StatusForbidden, echo.Map{"error": "staff accounts cannot manage roles"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var roles []model.Role
	q := database.GetDB().Order("id")
	if caller.Category != model.CategorySuperAdmin {
		if caller.TenantID == nil {
			return c.JSON(http.StatusOK, []model.Role{})
		}
		q = q.Where("tenant_id IS NULL OR tenant_id = ?", *caller.TenantID)
	}
	if result := q.Find(&roles); result.Error != nil {
		log.Error("Failed to list roles", zap.Error(result.Error))
		prometheus.RecordError("role_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve roles"})
	}

	return c.JSON(http.StatusOK, roles)
}

// GetRole returns one role with its granted permissions.
func GetRole(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_role_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	defer prometheus.TrackDBOperation("query")(time.Now())
	var role model.Role
	if result := database.GetDB().First(&role, id); result.Error != nil {
		prometheus.RecordError("role_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}

	if err := guard.CheckRoleAccess(caller, &role); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
		return respondError(c, log, err)
	}

	perms, err := st.PermissionsOfRole(c.Request().Context(), role.ID)
	if err != nil {
		log.Error("Failed to load role permissions", zap.Error(err))
		prometheus.RecordError("role_retrieval_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to retrieve role"})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"role":        role,
		"permissions": perms,
	})
}

// CreateRole creates a role. The reserved role name and the tenant-scope
// rules apply; a duplicate name within the owning tenant is a conflict.
func CreateRole(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)
	prometheus.RecordRoleOperation("create")

	var req roleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role creation request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.Name == "" {
		prometheus.RecordError("incomplete_role_creation")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	if err := guard.CheckRoleName(caller, req.Name); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
		auditor.Record(c.Request().Context(), actorID(c), caller.TenantID, audit.EventAuthDenied,
			fmt.Sprintf("create role %q", req.Name))
		return respondError(c, log, err)
	}

	// Non-global callers always create roles inside their own tenant,
	// whatever the request says.
	tenantID := req.TenantID
	if caller.Category != model.CategorySuperAdmin {
		tenantID = caller.TenantID
	}
	targetTenant := callerTenant(c, tenantID)
	if err := guard.Authorize(caller, authz.ActionManageRoles, targetTenant); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	var count int64
	dup := database.GetDB().Model(&model.Role{}).Where("LOWER(name) = LOWER(?)", req.Name)
	if tenantID != nil {
		dup = dup.Where("tenant_id = ?", *tenantID)
	} else {
		dup = dup.Where("tenant_id IS NULL")
	}
	if err := dup.Count(&count).Error; err != nil {
		log.Error("Failed to check role name", zap.Error(err))
		prometheus.RecordError("role_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role creation failed"})
	}
	if count > 0 {
		prometheus.RecordError("duplicate_role_name")
		return c.JSON(http.StatusConflict, echo.Map{"error": "role name already exists"})
	}

	level := req.Level
	if level == 0 {
		level = model.LevelStaff
	}
	role := model.Role{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Level:       level,
	}
	if result := database.GetDB().Create(&role); result.Error != nil {
		log.Error("Failed to create role", zap.Error(result.Error))
		prometheus.RecordError("role_creation_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role creation failed"})
	}

	auditor.Record(c.Request().Context(), actorID(c), tenantID, audit.EventRoleCreated, role.Name)
	log.Info("Role created", zap.Uint("id", role.ID), zap.String("name", role.Name))
	return c.JSON(http.StatusCreated, role)
}

// UpdateRole renames or re-describes a role. Renaming to the reserved name is
// subject to the same rule as creation.
func UpdateRole(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)
	prometheus.RecordRoleOperation("update")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_role_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	var req roleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role update request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var role model.Role
	if result := database.GetDB().First(&role, id); result.Error != nil {
		prometheus.RecordError("role_not_found")
		return c.JSON(http.StatusNotFound, echo.Map{"error": "role not found"})
	}

	if err := guard.CheckRoleAccess(caller, &role); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
		return respondError(c, log, err)
	}
	if req.Name != "" {
		if err := guard.CheckRoleName(caller, req.Name); err != nil {
			prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
			auditor.Record(c.Request().Context(), actorID(c), caller.TenantID, audit.EventAuthDenied,
				fmt.Sprintf("rename role %d to %q", role.ID, req.Name))
			return respondError(c, log, err)
		}
		role.Name = req.Name
	}
	role.Description = req.Description
	if req.Level != 0 {
		role.Level = req.Level
	}

	if err := database.GetDB().Save(&role).Error; err != nil {
		log.Error("Failed to update role", zap.Error(err))
		prometheus.RecordError("role_update_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role update failed"})
	}

	auditor.Record(c.Request().Context(), actorID(c), role.TenantID, audit.EventRoleUpdated, role.Name)
	return c.JSON(http.StatusOK, role)
}

// DeleteRole removes a role that no user references.
func DeleteRole(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)
	prometheus.RecordRoleOperation("delete")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_role_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}

	if err := guard.CheckRoleDeletion(c.Request().Context(), caller, uint(id)); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageRoles))
		return respondError(c, log, err)
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Role{}, id).Error
	}); err != nil {
		log.Error("Failed to delete role", zap.Error(err))
		prometheus.RecordError("role_deletion_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role deletion failed"})
	}

	auditor.Record(c.Request().Context(), actorID(c), caller.TenantID, audit.EventRoleDeleted,
		fmt.Sprintf("role %d", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Role deleted successfully"})
}

// GrantRolePermission adds a permission to a role. Granting an already-held
// permission is a conflict, not a no-op.
func GrantRolePermission(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)
	prometheus.RecordRoleOperation("grant")

	roleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_role_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}
	permID, err := strconv.ParseUint(c.Param("permission_id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_permission_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission ID"})
	}

	defer prometheus.TrackDBOperation("insert")(time.Now())
	if err := guard.GrantPermission(c.Request().Context(), caller, uint(roleID), uint(permID)); err != nil {
		return respondError(c, log, err)
	}

	auditor.Record(c.Request().Context(), actorID(c), caller.TenantID, audit.EventPermissionGranted,
		fmt.Sprintf("role %d permission %d", roleID, permID))
	return c.JSON(http.StatusCreated, echo.Map{"message": "Permission granted"})
}

// RevokeRolePermission removes a permission from a role. Revoking an absent
// permission is a conflict.
func RevokeRolePermission(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)
	prometheus.RecordRoleOperation("revoke")

	roleID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_role_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid role ID"})
	}
	permID, err := strconv.ParseUint(c.Param("permission_id"), 10, 32)
	if err != nil {
		prometheus.RecordError("invalid_permission_id")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid permission ID"})
	}

	defer prometheus.TrackDBOperation("delete")(time.Now())
	if err := guard.RevokePermission(c.Request().Context(), caller, uint(roleID), uint(permID)); err != nil {
		return respondError(c, log, err)
	}

	auditor.Record(c.Request().Context(), actorID(c), caller.TenantID, audit.EventPermissionRevoked,
		fmt.Sprintf("role %d permission %d", roleID, permID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Permission revoked"})
}

// AssignRole assigns a role to a user within the caller's scope.
func AssignRole(c echo.Context) error {
	log := logger.FromContext(c)
	caller := middleware.CallerFrom(c)
	prometheus.RecordRoleOperation("assign")

	var req struct {
		UserID uint `json:"user_id"`
		RoleID uint `json:"role_id"`
	}
	if err := c.Bind(&req); err != nil {
		log.Error("Failed to parse role assignment request", zap.Error(err))
		prometheus.RecordError("invalid_request")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request"})
	}
	if req.UserID == 0 || req.RoleID == 0 {
		prometheus.RecordError("incomplete_role_assignment")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user_id and role_id are required"})
	}

	defer prometheus.TrackDBOperation("update")(time.Now())
	var user model.User
	if err := database.GetDB().First(&user, req.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			prometheus.RecordError("user_not_found")
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		log.Error("Failed to load user", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role assignment failed"})
	}

	// The target user must be inside the caller's tenant scope.
	targetTenant := uint(0)
	if user.TenantID != nil {
		targetTenant = *user.TenantID
	}
	if err := guard.Authorize(caller, authz.ActionManageUsers, targetTenant); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageUsers))
		return respondError(c, log, err)
	}
	if err := guard.CheckRoleAssignment(c.Request().Context(), caller, req.RoleID, user.Category); err != nil {
		prometheus.RecordAuthzDenial(string(authz.ActionManageUsers))
		auditor.Record(c.Request().Context(), actorID(c), caller.TenantID, audit.EventAuthDenied,
			fmt.Sprintf("assign role %d to user %d", req.RoleID, req.UserID))
		return respondError(c, log, err)
	}

	if err := database.GetDB().Model(&user).Update("role_id", req.RoleID).Error; err != nil {
		log.Error("Failed to assign role", zap.Error(err))
		prometheus.RecordError("role_assignment_failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role assignment failed"})
	}

	log.Info("Role assigned",
		zap.Uint("user_id", req.UserID),
		zap.Uint("role_id", req.RoleID))
	return c.JSON(http.StatusOK, echo.Map{"message": "Role assigned successfully"})
}
