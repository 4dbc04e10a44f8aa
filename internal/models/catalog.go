package models

import (
	"time"

	"tiremarket/internal/conflict"
)

type TireBrand struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:200;uniqueIndex;not null" json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TireDiameter is a rim diameter such as Value "16", Label "R16".
type TireDiameter struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Value     string    `gorm:"size:16;uniqueIndex;not null" json:"value"`
	Label     string    `gorm:"size:32;not null" json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConflictBrands converts brand rows into label reference data.
func ConflictBrands(brands []TireBrand) []conflict.Brand {
	out := make([]conflict.Brand, 0, len(brands))
	for _, b := range brands {
		out = append(out, conflict.Brand{ID: b.ID, Name: b.Name})
	}
	return out
}

// ConflictDiameters converts diameter rows into label reference data.
func ConflictDiameters(diameters []TireDiameter) []conflict.Diameter {
	out := make([]conflict.Diameter, 0, len(diameters))
	for _, d := range diameters {
		out = append(out, conflict.Diameter{Value: d.Value, Label: d.Label})
	}
	return out
}
