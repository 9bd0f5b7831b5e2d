package model

import "time"

// Role levels follow the convention lower = more powerful.
const (
	LevelSuperAdmin = 1
	LevelAdmin      = 2
	LevelStaff      = 3
)

// Role is a named access level. TenantID nil means the role is global:
// visible to and assignable by any caller with sufficient level. A
// tenant-owned role is visible only within its tenant.
type Role struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	TenantID    *uint  `json:"tenant_id" gorm:"index"`
	Name        string `json:"name" gorm:"type:varchar(100);not null"`
	Description string `json:"description" gorm:"type:varchar(200)"`
	Level       int    `json:"level" gorm:"not null;default:999"`

	CreatedAt time.Time `json:"created_at"`
}

// RolePermission is the many-to-many grant between roles and permissions.
// The grant edge has its own creation timestamp, independent of either side.
type RolePermission struct {
	RoleID       uint      `json:"role_id" gorm:"primaryKey"`
	PermissionID uint      `json:"permission_id" gorm:"primaryKey"`
	CreatedAt    time.Time `json:"created_at"`
}
