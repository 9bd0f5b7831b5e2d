package authz

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

type grant struct{ roleID, permID uint }

// fakeStore is an in-memory Store for exercising the guard without a database.
type fakeStore struct {
	roles       map[uint]*model.Role
	permissions map[uint]*model.Permission
	grants      map[grant]bool
	rolesInUse  map[uint]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		roles:       make(map[uint]*model.Role),
		permissions: make(map[uint]*model.Permission),
		grants:      make(map[grant]bool),
		rolesInUse:  make(map[uint]bool),
	}
}

func (s *fakeStore) RoleByID(_ context.Context, id uint) (*model.Role, error) {
	if r, ok := s.roles[id]; ok {
		return r, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *fakeStore) PermissionByID(_ context.Context, id uint) (*model.Permission, error) {
	if p, ok := s.permissions[id]; ok {
		return p, nil
	}
	return nil, apperr.ErrNotFound
}

func (s *fakeStore) HasGrant(_ context.Context, roleID, permID uint) (bool, error) {
	return s.grants[grant{roleID, permID}], nil
}

func (s *fakeStore) AddGrant(_ context.Context, roleID, permID uint) error {
	s.grants[grant{roleID, permID}] = true
	return nil
}

func (s *fakeStore) RemoveGrant(_ context.Context, roleID, permID uint) error {
	delete(s.grants, grant{roleID, permID})
	return nil
}

func (s *fakeStore) RoleInUse(_ context.Context, roleID uint) (bool, error) {
	return s.rolesInUse[roleID], nil
}

func uintPtr(v uint) *uint { return &v }

func superadmin() Caller {
	return Caller{UserID: 1, Category: model.CategorySuperAdmin}
}

func admin(tenantID uint) Caller {
	return Caller{UserID: 2, Category: model.CategoryAdmin, TenantID: uintPtr(tenantID)}
}

func staff(tenantID uint) Caller {
	return Caller{UserID: 3, Category: model.CategoryStaff, TenantID: uintPtr(tenantID)}
}

func TestAuthorizeSuperAdminAnyTenant(t *testing.T) {
	g := NewGuard(newFakeStore())
	for _, tenant := range []uint{1, 2, 99} {
		assert.NoError(t, g.Authorize(superadmin(), ActionManageRoles, tenant))
		assert.NoError(t, g.Authorize(superadmin(), ActionRead, tenant))
	}
}

func TestAuthorizeAdminTenantIsolation(t *testing.T) {
	g := NewGuard(newFakeStore())
	caller := admin(7)

	assert.NoError(t, g.Authorize(caller, ActionManageNumbering, 7))

	// any other tenant is denied regardless of action
	for _, action := range []Action{ActionRead, ActionWrite, ActionManageRoles, ActionManageUsers, ActionManageNumbering} {
		err := g.Authorize(caller, action, 8)
		assert.ErrorIs(t, err, apperr.ErrUnauthorized, "action %s", action)
	}
}

func TestAuthorizeAdminWithoutTenant(t *testing.T) {
	g := NewGuard(newFakeStore())
	caller := Caller{UserID: 2, Category: model.CategoryAdmin}
	assert.ErrorIs(t, g.Authorize(caller, ActionRead, 1), apperr.ErrUnauthorized)
}

func TestAuthorizeStaffDenials(t *testing.T) {
	g := NewGuard(newFakeStore())
	caller := staff(7)

	// management actions denied outright, own tenant or not
	for _, action := range []Action{ActionManageRoles, ActionManageUsers, ActionManageNumbering} {
		assert.ErrorIs(t, g.Authorize(caller, action, 7), apperr.ErrUnauthorized)
	}

	// plain reads allowed inside the tenant, denied across
	assert.NoError(t, g.Authorize(caller, ActionRead, 7))
	assert.ErrorIs(t, g.Authorize(caller, ActionRead, 8), apperr.ErrUnauthorized)
}

func TestAuthorizeIsRepeatable(t *testing.T) {
	g := NewGuard(newFakeStore())
	caller := admin(7)
	for i := 0; i < 50; i++ {
		require.NoError(t, g.Authorize(caller, ActionWrite, 7))
		require.ErrorIs(t, g.Authorize(caller, ActionWrite, 8), apperr.ErrUnauthorized)
	}
}

func TestCheckRoleNameReserved(t *testing.T) {
	g := NewGuard(newFakeStore())

	for _, name := range []string{"superadmin", "SuperAdmin", "SUPERADMIN", "sUpErAdMiN"} {
		assert.ErrorIs(t, g.CheckRoleName(admin(1), name), apperr.ErrUnauthorized, "name %s", name)
		assert.NoError(t, g.CheckRoleName(superadmin(), name))
	}

	assert.NoError(t, g.CheckRoleName(admin(1), "warehouse-manager"))
	assert.NoError(t, g.CheckRoleName(admin(1), "superadministrator"))
}

func TestCheckRoleAccess(t *testing.T) {
	g := NewGuard(newFakeStore())

	global := &model.Role{ID: 1, Name: "auditor", Level: model.LevelAdmin}
	owned := &model.Role{ID: 2, Name: "cashier", Level: model.LevelStaff, TenantID: uintPtr(7)}
	foreign := &model.Role{ID: 3, Name: "cashier", Level: model.LevelStaff, TenantID: uintPtr(8)}

	assert.NoError(t, g.CheckRoleAccess(admin(7), global))
	assert.NoError(t, g.CheckRoleAccess(admin(7), owned))
	assert.ErrorIs(t, g.CheckRoleAccess(admin(7), foreign), apperr.ErrUnauthorized)
	assert.ErrorIs(t, g.CheckRoleAccess(staff(7), owned), apperr.ErrUnauthorized)
	assert.NoError(t, g.CheckRoleAccess(superadmin(), foreign))
}

func TestGrantPermission(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.roles[1] = &model.Role{ID: 1, Name: "cashier", TenantID: uintPtr(7)}
	store.permissions[10] = &model.Permission{ID: 10, Name: "sales.create"}
	g := NewGuard(store)

	require.NoError(t, g.GrantPermission(ctx, admin(7), 1, 10))

	// duplicate grant is a conflict, not a silent success
	assert.ErrorIs(t, g.GrantPermission(ctx, admin(7), 1, 10), apperr.ErrConflict)

	// cross-tenant grant denied
	assert.ErrorIs(t, g.GrantPermission(ctx, admin(8), 1, 10), apperr.ErrUnauthorized)

	// unknown permission
	assert.ErrorIs(t, g.GrantPermission(ctx, admin(7), 1, 99), apperr.ErrNotFound)
}

func TestRevokePermission(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.roles[1] = &model.Role{ID: 1, Name: "cashier", TenantID: uintPtr(7)}
	store.permissions[10] = &model.Permission{ID: 10, Name: "sales.create"}
	g := NewGuard(store)

	// revoking an absent grant is a conflict
	assert.ErrorIs(t, g.RevokePermission(ctx, admin(7), 1, 10), apperr.ErrConflict)

	require.NoError(t, store.AddGrant(ctx, 1, 10))
	require.NoError(t, g.RevokePermission(ctx, admin(7), 1, 10))
	assert.ErrorIs(t, g.RevokePermission(ctx, admin(7), 1, 10), apperr.ErrConflict)
}

func TestCheckRoleDeletion(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.roles[1] = &model.Role{ID: 1, Name: "cashier", TenantID: uintPtr(7)}
	store.rolesInUse[1] = true
	g := NewGuard(store)

	assert.ErrorIs(t, g.CheckRoleDeletion(ctx, admin(7), 1), apperr.ErrConflict)

	store.rolesInUse[1] = false
	assert.NoError(t, g.CheckRoleDeletion(ctx, admin(7), 1))

	assert.ErrorIs(t, g.CheckRoleDeletion(ctx, admin(8), 1), apperr.ErrUnauthorized)
	assert.ErrorIs(t, g.CheckRoleDeletion(ctx, superadmin(), 42), apperr.ErrNotFound)
}

func TestCheckRoleAssignment(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.roles[1] = &model.Role{ID: 1, Name: "SuperAdmin", Level: model.LevelSuperAdmin}
	store.roles[2] = &model.Role{ID: 2, Name: "cashier", TenantID: uintPtr(7)}
	g := NewGuard(store)

	// an admin can never hand out the reserved role, even a global one
	assert.ErrorIs(t, g.CheckRoleAssignment(ctx, admin(7), 1, model.CategoryAdmin), apperr.ErrUnauthorized)
	assert.NoError(t, g.CheckRoleAssignment(ctx, superadmin(), 1, model.CategoryAdmin))

	assert.NoError(t, g.CheckRoleAssignment(ctx, admin(7), 2, model.CategoryStaff))
	assert.ErrorIs(t, g.CheckRoleAssignment(ctx, admin(8), 2, model.CategoryStaff), apperr.ErrUnauthorized)
}

func TestCheckRoleAssignmentStaffTarget(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.roles[1] = &model.Role{ID: 1, Name: "SuperAdmin", Level: model.LevelSuperAdmin}
	store.roles[2] = &model.Role{ID: 2, Name: "operations", Level: model.LevelSuperAdmin, TenantID: uintPtr(7)}
	store.roles[3] = &model.Role{ID: 3, Name: "cashier", Level: model.LevelStaff, TenantID: uintPtr(7)}
	g := NewGuard(store)

	// a staff-category account can never hold a super-administrator role,
	// no matter who assigns it
	assert.ErrorIs(t, g.CheckRoleAssignment(ctx, superadmin(), 1, model.CategoryStaff), apperr.ErrUnauthorized)
	assert.ErrorIs(t, g.CheckRoleAssignment(ctx, superadmin(), 2, model.CategoryStaff), apperr.ErrUnauthorized)
	assert.ErrorIs(t, g.CheckRoleAssignment(ctx, admin(7), 2, model.CategoryStaff), apperr.ErrUnauthorized)

	// the same roles remain assignable to admin-category targets
	assert.NoError(t, g.CheckRoleAssignment(ctx, superadmin(), 1, model.CategoryAdmin))
	assert.NoError(t, g.CheckRoleAssignment(ctx, admin(7), 2, model.CategoryAdmin))

	// staff targets still take ordinary roles
	assert.NoError(t, g.CheckRoleAssignment(ctx, admin(7), 3, model.CategoryStaff))
}
