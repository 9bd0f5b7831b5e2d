package model

import (
	"time"

	"gorm.io/gorm"
)

// Invoice is a numbered sales document. Number comes from the allocator and
// is written in the same transaction that reserves its ordinal, so a crash
// can skip a number but never duplicate one.
type Invoice struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	TenantID uint `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_invoices_tenant_number"`
	ClientID uint `json:"client_id" gorm:"not null;index"`

	NumberingConfigID uint   `json:"numbering_config_id" gorm:"not null;index"`
	Number            string `json:"number" gorm:"type:varchar(50);not null;uniqueIndex:idx_invoices_tenant_number"`
	Ordinal           int64  `json:"ordinal" gorm:"not null"`

	Total float64 `json:"total" gorm:"default:0"`
	Notes string  `json:"notes" gorm:"type:text"`

	CreatedBy uint `json:"created_by"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}
