package models

import "time"

// Permission is addressed by slug, e.g. "exceptions:write".
type Permission struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Slug        string    `gorm:"uniqueIndex;size:200;not null" json:"slug"`
	Description string    `gorm:"size:255" json:"description"`
	Resource    string    `gorm:"size:100" json:"resource"`
	Action      string    `gorm:"size:100" json:"action"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
