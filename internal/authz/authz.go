package authz

import (
	"context"
	"strings"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

// Action names the operation being authorized.
type Action string

const (
	ActionRead            Action = "read"
	ActionWrite           Action = "write"
	ActionManageRoles     Action = "manage_roles"
	ActionManageUsers     Action = "manage_users"
	ActionManageNumbering Action = "manage_numbering"
)

// reservedRoleName may only be created, renamed to, or assigned by a
// superadmin-category caller. Matched case-insensitively.
const reservedRoleName = "superadmin"

// Caller is the identity the request layer resolved from the JWT.
type Caller struct {
	UserID   uint
	Category model.UserCategory
	TenantID *uint
	RoleID   *uint
}

// Store provides explicit lookups over the persisted role/permission graph,
// returning plain value objects. No lazy relationship traversal: every query
// the guard issues is visible here.
type Store interface {
	RoleByID(ctx context.Context, id uint) (*model.Role, error)
	PermissionByID(ctx context.Context, id uint) (*model.Permission, error)
	HasGrant(ctx context.Context, roleID, permissionID uint) (bool, error)
	AddGrant(ctx context.Context, roleID, permissionID uint) error
	RemoveGrant(ctx context.Context, roleID, permissionID uint) error
	RoleInUse(ctx context.Context, roleID uint) (bool, error)
}

// Guard decides allow/deny for tenant-scoped actions. Authorize and the
// Check* helpers are pure predicates: no mutation, identical results for
// identical inputs.
type Guard struct {
	store Store
}

func NewGuard(store Store) *Guard {
	return &Guard{store: store}
}

// Authorize decides whether caller may perform action on targetTenantID.
//   - superadmin category: any tenant.
//   - admin category: own tenant only.
//   - staff category: no role/user/numbering management at all, and no
//     cross-tenant access.
func (g *Guard) Authorize(caller Caller, action Action, targetTenantID uint) error {
	switch caller.Category {
	case model.CategorySuperAdmin:
		return nil
	case model.CategoryAdmin:
		if caller.TenantID == nil || *caller.TenantID != targetTenantID {
			return apperr.Wrap(apperr.ErrUnauthorized, "tenant %d is outside the caller's scope", targetTenantID)
		}
		return nil
	case model.CategoryStaff:
		switch action {
		case ActionManageRoles, ActionManageUsers, ActionManageNumbering:
			return apperr.Wrap(apperr.ErrUnauthorized, "staff accounts cannot perform %s", action)
		}
		if caller.TenantID == nil || *caller.TenantID != targetTenantID {
			return apperr.Wrap(apperr.ErrUnauthorized, "tenant %d is outside the caller's scope", targetTenantID)
		}
		return nil
	default:
		return apperr.Wrap(apperr.ErrUnauthorized, "unknown account category %q", caller.Category)
	}
}

// CheckRoleName enforces the reserved-name rule at role creation, rename and
// assignment time: only a superadmin-category caller may use the literal
// "superadmin" role name, in any casing.
func (g *Guard) CheckRoleName(caller Caller, name string) error {
	if caller.Category == model.CategorySuperAdmin {
		return nil
	}
	if strings.EqualFold(name, reservedRoleName) {
		return apperr.Wrap(apperr.ErrUnauthorized, "role name %q is reserved", name)
	}
	return nil
}

// CheckRoleAccess applies the tenant-match rule for reading, mutating or
// deleting a role. Global roles (no owning tenant) are visible to admins;
// tenant-owned roles only within their tenant.
func (g *Guard) CheckRoleAccess(caller Caller, role *model.Role) error {
	if caller.Category == model.CategorySuperAdmin {
		return nil
	}
	if caller.Category == model.CategoryStaff {
		return apperr.Wrap(apperr.ErrUnauthorized, "staff accounts cannot manage roles")
	}
	if role.TenantID == nil {
		return nil
	}
	if caller.TenantID == nil || *caller.TenantID != *role.TenantID {
		return apperr.Wrap(apperr.ErrUnauthorized, "role %d belongs to another tenant", role.ID)
	}
	return nil
}

// CheckRoleAssignment validates assigning roleID to a user: the tenant-match
// rule, the reserved-name rule, and the target-side rule that a staff-category
// account can never hold a super-administrator role, whoever the caller is.
func (g *Guard) CheckRoleAssignment(ctx context.Context, caller Caller, roleID uint, target model.UserCategory) error {
	role, err := g.store.RoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := g.CheckRoleAccess(caller, role); err != nil {
		return err
	}
	if err := g.CheckRoleName(caller, role.Name); err != nil {
		return err
	}
	if target == model.CategoryStaff &&
		(role.Level == model.LevelSuperAdmin || strings.EqualFold(role.Name, reservedRoleName)) {
		return apperr.Wrap(apperr.ErrUnauthorized, "staff accounts cannot hold role %q", role.Name)
	}
	return nil
}

// GrantPermission adds a permission to a role. Granting a permission the
// role already holds is a Conflict, not a silent success.
func (g *Guard) GrantPermission(ctx context.Context, caller Caller, roleID, permissionID uint) error {
	role, err := g.store.RoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := g.CheckRoleAccess(caller, role); err != nil {
		return err
	}
	if _, err := g.store.PermissionByID(ctx, permissionID); err != nil {
		return err
	}
	granted, err := g.store.HasGrant(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if granted {
		return apperr.Wrap(apperr.ErrConflict, "role %d already holds permission %d", roleID, permissionID)
	}
	return g.store.AddGrant(ctx, roleID, permissionID)
}

// RevokePermission removes a permission from a role. Revoking a permission
// the role does not hold is a Conflict.
func (g *Guard) RevokePermission(ctx context.Context, caller Caller, roleID, permissionID uint) error {
	role, err := g.store.RoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := g.CheckRoleAccess(caller, role); err != nil {
		return err
	}
	if _, err := g.store.PermissionByID(ctx, permissionID); err != nil {
		return err
	}
	granted, err := g.store.HasGrant(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if !granted {
		return apperr.Wrap(apperr.ErrConflict, "role %d does not hold permission %d", roleID, permissionID)
	}
	return g.store.RemoveGrant(ctx, roleID, permissionID)
}

// CheckRoleDeletion applies the tenant-match rule and refuses to delete a
// role that users still reference.
func (g *Guard) CheckRoleDeletion(ctx context.Context, caller Caller, roleID uint) error {
	role, err := g.store.RoleByID(ctx, roleID)
	if err != nil {
		return err
	}
	if err := g.CheckRoleAccess(caller, role); err != nil {
		return err
	}
	inUse, err := g.store.RoleInUse(ctx, roleID)
	if err != nil {
		return err
	}
	if inUse {
		return apperr.Wrap(apperr.ErrConflict, "role %d is still assigned to users", roleID)
	}
	return nil
}
