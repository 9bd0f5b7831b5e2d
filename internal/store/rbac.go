package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"gestion-service/internal/apperr"
	"gestion-service/internal/model"
)

func (s *Store) RoleByID(ctx context.Context, id uint) (*model.Role, error) {
	var role model.Role
	if err := s.db.WithContext(ctx).First(&role, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "role %d", id)
		}
		return nil, err
	}
	return &role, nil
}

func (s *Store) PermissionByID(ctx context.Context, id uint) (*model.Permission, error) {
	var perm model.Permission
	if err := s.db.WithContext(ctx).First(&perm, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Wrap(apperr.ErrNotFound, "permission %d", id)
		}
		return nil, err
	}
	return &perm, nil
}

func (s *Store) HasGrant(ctx context.Context, roleID, permissionID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.RolePermission{}).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) AddGrant(ctx context.Context, roleID, permissionID uint) error {
	return s.db.WithContext(ctx).Create(&model.RolePermission{
		RoleID:       roleID,
		PermissionID: permissionID,
	}).Error
}

func (s *Store) RemoveGrant(ctx context.Context, roleID, permissionID uint) error {
	return s.db.WithContext(ctx).
		Where("role_id = ? AND permission_id = ?", roleID, permissionID).
		Delete(&model.RolePermission{}).Error
}

func (s *Store) RoleInUse(ctx context.Context, roleID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("role_id = ?", roleID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// PermissionsOfRole lists the permissions granted to a role through the
// grant edges, as plain values.
func (s *Store) PermissionsOfRole(ctx context.Context, roleID uint) ([]model.Permission, error) {
	var perms []model.Permission
	err := s.db.WithContext(ctx).
		Joins("JOIN role_permissions ON role_permissions.permission_id = permissions.id").
		Where("role_permissions.role_id = ?", roleID).
		Order("permissions.id").
		Find(&perms).Error
	if err != nil {
		return nil, err
	}
	return perms, nil
}
