package models

import (
	"time"

	"tiremarket/internal/conflict"
)

// AgreementException overrides the agreement commission. A NULL brand or
// diameter applies to every brand or diameter.
type AgreementException struct {
	ID                int64     `gorm:"primaryKey" json:"id"`
	AgreementID       int64     `gorm:"index;not null" json:"agreement_id"`
	TireBrandID       *int64    `gorm:"index" json:"tire_brand_id"`
	TireDiameter      *string   `gorm:"size:16" json:"tire_diameter"`
	CommissionPercent float64   `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	Note              string    `gorm:"type:text" json:"note"`
	Active            bool      `json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`

	Agreement *Agreement `gorm:"foreignKey:AgreementID" json:"-"`
	TireBrand *TireBrand `gorm:"foreignKey:TireBrandID" json:"-"`
}

// Rule returns the exception as seen by the conflict detector.
func (e AgreementException) Rule() conflict.ExceptionRule {
	return conflict.ExceptionRule{
		ID:       e.ID,
		Brand:    conflict.FromPtr(e.TireBrandID),
		Diameter: conflict.DiameterFromPtr(e.TireDiameter),
		Active:   e.Active,
	}
}

// Rules maps a slice of exceptions with Rule.
func Rules(exceptions []AgreementException) []conflict.ExceptionRule {
	out := make([]conflict.ExceptionRule, 0, len(exceptions))
	for _, e := range exceptions {
		out = append(out, e.Rule())
	}
	return out
}
