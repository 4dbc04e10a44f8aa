package models

import "time"

type Role struct {
	ID          int64        `gorm:"primaryKey" json:"id"`
	OrgID       int64        `gorm:"index" json:"org_id"`
	Name        string       `gorm:"size:200;not null" json:"name"`
	Slug        string       `gorm:"size:200;not null" json:"slug"`
	Description string       `json:"description"`
	IsSystem    bool         `gorm:"default:false" json:"is_system"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
}

// RolePermission is a row of the role_permissions join table behind Role.Permissions.
type RolePermission struct {
	RoleID       int64 `gorm:"primaryKey"`
	PermissionID int64 `gorm:"primaryKey"`
}
