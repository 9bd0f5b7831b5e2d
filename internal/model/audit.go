package model

import "time"

// AuditLog records a structured business event: authorization denials,
// numbering exhaustion and expiry, default switches, role mutations and
// login outcomes.
type AuditLog struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ActorID   *uint     `json:"actor_id" gorm:"index"`
	TenantID  *uint     `json:"tenant_id" gorm:"index"`
	EventKind string    `json:"event_kind" gorm:"type:varchar(50);not null;index"`
	Detail    string    `json:"detail" gorm:"type:text"`
	SourceIP  string    `json:"source_ip" gorm:"type:varchar(45)"`
	CreatedAt time.Time `json:"created_at"`
}
