package model

import "time"

// NumberingConfig is one invoicing resolution: a per-tenant, per-document-type
// sequence with a prefix format, a range, a validity window and a default
// flag. NextValue is the mutable cursor; it is advanced exclusively through
// the allocator's atomic reserve operation, never by direct field writes.
// The invariant range_start <= next_value <= range_end+1 always holds; the
// +1 marks exhaustion.
type NumberingConfig struct {
	ID       uint `json:"id" gorm:"primaryKey"`
	TenantID uint `json:"tenant_id" gorm:"not null;index;uniqueIndex:idx_numbering_tenant_code"`

	// DocumentType is the document-type label this resolution numbers,
	// e.g. "Invoice" or "Credit Note".
	DocumentType string `json:"document_type" gorm:"type:varchar(50);not null;index"`

	// Code is the resolution's natural key within its tenant.
	Code  string `json:"code" gorm:"type:varchar(100);not null;uniqueIndex:idx_numbering_tenant_code"`
	Title string `json:"title" gorm:"type:varchar(100);not null"`

	ShowNumbering bool   `json:"show_numbering" gorm:"default:true"`
	Prefix        string `json:"prefix" gorm:"type:varchar(20)"`
	Separator     string `json:"separator" gorm:"type:varchar(5);default:''"`
	NumberTitle   string `json:"number_title" gorm:"type:varchar(20);default:'No.'"`
	Width         int    `json:"width"`
	IsDefault     bool   `json:"is_default" gorm:"default:false"`

	ResolutionNumber string     `json:"resolution_number" gorm:"type:varchar(50)"`
	IssuedAt         *time.Time `json:"issued_at"`
	ExpiresAt        *time.Time `json:"expires_at"`

	RangeStart int64 `json:"range_start" gorm:"not null"`
	RangeEnd   int64 `json:"range_end" gorm:"not null"`
	NextValue  int64 `json:"next_value" gorm:"not null"`

	MaxLineItems *int `json:"max_line_items"`
	Electronic   bool `json:"electronic" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
