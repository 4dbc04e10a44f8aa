package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tiremarket/internal/audit"
	"tiremarket/internal/models"
)

type agreementInput struct {
	PartnerName       string     `json:"partner_name" binding:"required"`
	CommissionPercent *float64   `json:"commission_percent" binding:"required"`
	Active            *bool      `json:"active"`
	ValidFrom         *time.Time `json:"valid_from"`
	ValidTo           *time.Time `json:"valid_to"`
}

func (in *agreementInput) validate() error {
	in.PartnerName = strings.TrimSpace(in.PartnerName)
	if in.PartnerName == "" {
		return errors.New("partner_name must not be blank")
	}
	if !validCommission(*in.CommissionPercent) {
		return errors.New("commission_percent must be between 0 and 100")
	}
	if in.ValidFrom != nil && in.ValidTo != nil && in.ValidTo.Before(*in.ValidFrom) {
		return errors.New("valid_to must not be before valid_from")
	}
	return nil
}

// ListAgreements returns the agreements of the caller's organization.
func ListAgreements(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		q := db.WithContext(c).Where("org_id = ?", cl.OrgID).Order("id")
		if s := strings.TrimSpace(c.Query("q")); s != "" {
			q = q.Where("partner_name LIKE ?", "%"+s+"%")
		}
		var agreements []models.Agreement
		if err := q.Find(&agreements).Error; err != nil {
			internalError(c, "failed to list agreements", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agreements": agreements})
	}
}

func GetAgreement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		a, err := findAgreement(db.WithContext(c), cl.OrgID, id)
		if errors.Is(err, errAgreementNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agreement not found"})
			return
		}
		if err != nil {
			internalError(c, "failed to load agreement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agreement": a})
	}
}

func CreateAgreement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		var in agreementInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := in.validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		a := models.Agreement{
			OrgID:             int64(cl.OrgID),
			PartnerName:       in.PartnerName,
			CommissionPercent: *in.CommissionPercent,
			Active:            in.Active == nil || *in.Active,
			ValidFrom:         in.ValidFrom,
			ValidTo:           in.ValidTo,
		}
		err := db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			// Active is written explicitly so false is not replaced by the column default.
			if err := tx.Create(&a).Error; err != nil {
				return err
			}
			if !a.Active {
				if err := tx.Model(&a).Update("active", false).Error; err != nil {
					return err
				}
			}
			return audit.Record(tx, c, audit.Entry{
				Action:       "agreement.create",
				ResourceType: "agreement",
				ResourceID:   a.ID,
				Metadata:     map[string]any{"partner_name": a.PartnerName},
			})
		})
		if err != nil {
			internalError(c, "failed to create agreement", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"agreement": a})
	}
}

func UpdateAgreement(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		id, ok := paramID(c, "id")
		if !ok {
			return
		}
		var in agreementInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := in.validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var a models.Agreement
		err := db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			var err error
			a, err = findAgreement(tx, cl.OrgID, id)
			if err != nil {
				return err
			}
			a.PartnerName = in.PartnerName
			a.CommissionPercent = *in.CommissionPercent
			if in.Active != nil {
				a.Active = *in.Active
			}
			a.ValidFrom = in.ValidFrom
			a.ValidTo = in.ValidTo
			if err := tx.Select("PartnerName", "CommissionPercent", "Active", "ValidFrom", "ValidTo").Save(&a).Error; err != nil {
				return err
			}
			return audit.Record(tx, c, audit.Entry{
				Action:       "agreement.update",
				ResourceType: "agreement",
				ResourceID:   a.ID,
			})
		})
		if errors.Is(err, errAgreementNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "agreement not found"})
			return
		}
		if err != nil {
			internalError(c, "failed to update agreement", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"agreement": a})
	}
}
