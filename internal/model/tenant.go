package model

import (
	"time"

	"gorm.io/gorm"
)

// Tenant is the isolation boundary of the system: every role, numbering
// config and business entity belongs to exactly one tenant.
type Tenant struct {
	ID uint `json:"id" gorm:"primaryKey"`

	// Fiscal identity. VerificationDigit is derived from DocumentTypeID and
	// DocumentNumber by the fiscal calculator; it is never accepted from a
	// request body.
	DocumentTypeID    *uint  `json:"document_type_id" gorm:"index"`
	DocumentNumber    string `json:"document_number" gorm:"type:varchar(30)"`
	VerificationDigit string `json:"verification_digit" gorm:"type:varchar(5)"`

	LegalName string `json:"legal_name" gorm:"type:varchar(200);not null"`
	TradeName string `json:"trade_name" gorm:"type:varchar(200)"`
	ShortName string `json:"short_name" gorm:"type:varchar(50)"`

	Email        string `json:"email" gorm:"type:varchar(100)"`
	BillingEmail string `json:"billing_email" gorm:"type:varchar(100)"`
	Phone        string `json:"phone" gorm:"type:varchar(30)"`
	Website      string `json:"website" gorm:"type:varchar(200)"`

	Active bool `json:"active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
