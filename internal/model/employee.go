package model

import (
	"time"

	"gorm.io/gorm"
)

// Employee is a tenant-owned staff record carrying a fiscal identity.
type Employee struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	TenantID uint `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_employees_tenant_document"`

	DocumentTypeID    *uint  `json:"document_type_id"`
	DocumentNumber    string `json:"document_number" gorm:"type:varchar(30);not null;uniqueIndex:idx_employees_tenant_document"`
	VerificationDigit string `json:"verification_digit" gorm:"type:varchar(5)"`

	FirstName string `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string `json:"last_name" gorm:"type:varchar(100)"`
	Email     string `json:"email" gorm:"type:varchar(100)"`
	Phone     string `json:"phone" gorm:"type:varchar(30)"`
	Position  string `json:"position" gorm:"type:varchar(100)"`

	IsSeller bool `json:"is_seller" gorm:"default:false"`
	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
