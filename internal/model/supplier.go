package model

import (
	"time"

	"gorm.io/gorm"
)

// Supplier is a tenant-owned vendor record carrying a fiscal identity.
type Supplier struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	TenantID uint `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_suppliers_tenant_document"`

	DocumentTypeID    *uint  `json:"document_type_id"`
	DocumentNumber    string `json:"document_number" gorm:"type:varchar(30);not null;uniqueIndex:idx_suppliers_tenant_document"`
	VerificationDigit string `json:"verification_digit" gorm:"type:varchar(5)"`

	Name          string `json:"name" gorm:"type:varchar(200);not null"`
	ContactPerson string `json:"contact_person" gorm:"type:varchar(100)"`
	Email         string `json:"email" gorm:"type:varchar(100)"`
	Phone         string `json:"phone" gorm:"type:varchar(30)"`
	Address       string `json:"address" gorm:"type:varchar(200)"`
	City          string `json:"city" gorm:"type:varchar(100)"`

	PaymentTerms string `json:"payment_terms" gorm:"type:varchar(100)"`
	Notes        string `json:"notes" gorm:"type:text"`
	IsActive     bool   `json:"is_active" gorm:"default:true"`

	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
