package model

import (
	"time"

	"gorm.io/gorm"
)

// Client is a tenant-owned customer record carrying a fiscal identity.
// (tenant_id, document_number) is the natural key: no two clients of the
// same tenant may share a document number.
type Client struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	TenantID uint `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_clients_tenant_document"`

	DocumentTypeID    *uint  `json:"document_type_id"`
	DocumentNumber    string `json:"document_number" gorm:"type:varchar(30);not null;uniqueIndex:idx_clients_tenant_document"`
	VerificationDigit string `json:"verification_digit" gorm:"type:varchar(5)"`

	Name    string `json:"name" gorm:"type:varchar(200);not null"`
	Email   string `json:"email" gorm:"type:varchar(100)"`
	Phone   string `json:"phone" gorm:"type:varchar(30)"`
	Address string `json:"address" gorm:"type:varchar(200)"`
	City    string `json:"city" gorm:"type:varchar(100)"`

	AllowSales  bool    `json:"allow_sales" gorm:"default:true"`
	Discount    float64 `json:"discount" gorm:"default:0"`
	CreditLimit float64 `json:"credit_limit" gorm:"default:0"`
	Notes       string  `json:"notes" gorm:"type:text"`

	CreatedBy uint `json:"created_by"`
	UpdatedBy uint `json:"updated_by"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
