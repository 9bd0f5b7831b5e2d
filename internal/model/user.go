package model

import (
	"time"

	"gorm.io/gorm"
)

// UserCategory is the account-level tier checked before any role lookup.
type UserCategory string

const (
	CategorySuperAdmin UserCategory = "superadmin"
	CategoryAdmin      UserCategory = "admin"
	CategoryStaff      UserCategory = "staff"
)

// User represents a caller identity. TenantID is nil only for users holding
// a global role (superadmin operators).
type User struct {
	ID       uint         `json:"id" gorm:"primaryKey"`
	Email    string       `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Password string       `json:"-" gorm:"type:varchar(255)"`
	Category UserCategory `json:"category" gorm:"type:varchar(20);not null;default:'staff'"`
	RoleID   *uint        `json:"role_id" gorm:"index"`
	TenantID *uint        `json:"tenant_id" gorm:"index"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
