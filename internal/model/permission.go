package model

// Permission is a named capability, independent of any tenant. Roles acquire
// permissions through RolePermission grant edges.
type Permission struct {
	ID          uint   `json:"id" gorm:"primaryKey"`
	Name        string `json:"name" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string `json:"description" gorm:"type:varchar(200)"`
}
