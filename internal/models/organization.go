package models

import "time"

type Organization struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;not null" json:"name"`
	Slug      string    `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Users      []User      `gorm:"foreignKey:OrgID" json:"-"`
	Roles      []Role      `gorm:"foreignKey:OrgID" json:"-"`
	Agreements []Agreement `gorm:"foreignKey:OrgID" json:"-"`
}
