package models

import "time"

// Agreement is a partner commission agreement. Exceptions override
// CommissionPercent for a brand, a diameter or both.
type Agreement struct {
	ID                int64      `gorm:"primaryKey" json:"id"`
	OrgID             int64      `gorm:"index;not null" json:"org_id"`
	PartnerName       string     `gorm:"size:200;not null" json:"partner_name"`
	CommissionPercent float64    `gorm:"type:decimal(5,2);not null" json:"commission_percent"`
	Active            bool       `gorm:"default:true" json:"active"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidTo           *time.Time `json:"valid_to"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`

	Exceptions []AgreementException `gorm:"foreignKey:AgreementID" json:"exceptions,omitempty"`
}
