package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tiremarket/internal/audit"
	"tiremarket/internal/conflict"
	"tiremarket/internal/logging"
	"tiremarket/internal/metrics"
	"tiremarket/internal/models"
)

// selectionInput is the JSON form of a brand/diameter selection.
type selectionInput struct {
	BrandIDs      []int64  `json:"brand_ids"`
	Diameters     []string `json:"diameters"`
	ExcludeRuleID *int64   `json:"exclude_rule_id"`
}

func (in selectionInput) selection() (conflict.Selection, error) {
	return conflict.Selection{
		BrandIDs:      in.BrandIDs,
		Diameters:     in.Diameters,
		ExcludeRuleID: in.ExcludeRuleID,
	}.Validate()
}

type conflictJSON struct {
	RuleID       int64   `json:"rule_id"`
	BrandID      *int64  `json:"brand_id"`
	Diameter     *string `json:"diameter"`
	RuleBrandID  *int64  `json:"rule_brand_id"`
	RuleDiameter *string `json:"rule_diameter"`
	Message      string  `json:"message"`
}

func conflictsJSON(conflicts []conflict.Conflict, labels conflict.Labeler) []conflictJSON {
	out := make([]conflictJSON, 0, len(conflicts))
	for _, cf := range conflicts {
		out = append(out, conflictJSON{
			RuleID:       cf.Rule.ID,
			BrandID:      cf.Combination.Brand.Ptr(),
			Diameter:     cf.Combination.Diameter.Ptr(),
			RuleBrandID:  cf.Rule.Brand.Ptr(),
			RuleDiameter: cf.Rule.Diameter.Ptr(),
			Message:      labels.ConflictMessage(cf),
		})
	}
	return out
}

// conflictError aborts a write transaction that would overlap active exceptions.
type conflictError struct {
	conflicts []conflict.Conflict
}

func (e *conflictError) Error() string {
	return fmt.Sprintf("%d conflicting exception(s)", len(e.conflicts))
}

// activeRules reads the active exceptions of an agreement.
func activeRules(tx *gorm.DB, agreementID int64) ([]conflict.ExceptionRule, error) {
	var rows []models.AgreementException
	if err := tx.Where("agreement_id = ? AND active = ?", agreementID, true).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	return models.Rules(rows), nil
}

// checkConflicts scans the agreement's active exceptions for overlaps with sel.
func checkConflicts(tx *gorm.DB, agreementID int64, sel conflict.Selection) ([]conflict.Conflict, error) {
	rules, err := activeRules(tx, agreementID)
	if err != nil {
		return nil, err
	}
	found := conflict.Find(sel, rules)
	metrics.ObserveConflictCheck(len(found))
	return found, nil
}

// respondWriteError maps errors of exception writes to responses.
func respondWriteError(c *gin.Context, db *gorm.DB, fallback conflict.Locale, err error) {
	var cerr *conflictError
	switch {
	case errors.As(err, &cerr):
		labels, lerr := labelCatalog(db.WithContext(c), requestLocale(c, fallback))
		if lerr != nil {
			internalError(c, "failed to load labels", lerr)
			return
		}
		c.JSON(http.StatusConflict, gin.H{
			"error":     "exception overlaps existing active exceptions",
			"conflicts": conflictsJSON(cerr.conflicts, labels),
			"messages":  conflict.Messages(cerr.conflicts, labels),
		})
	case errors.Is(err, errAgreementNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "agreement not found"})
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "exception not found"})
	default:
		internalError(c, "failed to save exception", err)
	}
}

// ListExceptions lists an agreement's exceptions; ?active=true keeps active ones only.
func ListExceptions(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		agreementID, ok := paramID(c, "id")
		if !ok {
			return
		}
		tx := db.WithContext(c)
		if _, err := findAgreement(tx, cl.OrgID, agreementID); err != nil {
			respondWriteError(c, db, "", err)
			return
		}

		q := tx.Where("agreement_id = ?", agreementID).Order("id")
		switch c.Query("active") {
		case "true":
			q = q.Where("active = ?", true)
		case "false":
			q = q.Where("active = ?", false)
		}
		var rows []models.AgreementException
		if err := q.Find(&rows).Error; err != nil {
			internalError(c, "failed to list exceptions", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"exceptions": rows})
	}
}

// PreviewConflicts reports, without writing, which active exceptions a
// selection would overlap.
func PreviewConflicts(db *gorm.DB, fallback conflict.Locale) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		agreementID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var in selectionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sel, err := in.selection()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tx := db.WithContext(c)
		if _, err := findAgreement(tx, cl.OrgID, agreementID); err != nil {
			respondWriteError(c, db, fallback, err)
			return
		}
		found, err := checkConflicts(tx, agreementID, sel)
		if err != nil {
			internalError(c, "failed to load exceptions", err)
			return
		}
		labels, err := labelCatalog(tx, requestLocale(c, fallback))
		if err != nil {
			internalError(c, "failed to load labels", err)
			return
		}
		messages := conflict.Messages(found, labels)
		if messages == nil {
			messages = []string{}
		}
		c.JSON(http.StatusOK, gin.H{
			"combinations": len(conflict.Expand(sel)),
			"conflicts":    conflictsJSON(found, labels),
			"messages":     messages,
		})
	}
}

type createExceptionsInput struct {
	selectionInput
	CommissionPercent *float64 `json:"commission_percent" binding:"required"`
	Note              string   `json:"note"`
	Active            *bool    `json:"active"`
	Force             bool     `json:"force"`
}

func validCommission(p float64) bool { return p >= 0 && p <= 100 }

// CreateExceptions creates one exception per brand/diameter combination of
// the selection. Overlaps with active exceptions are refused with 409
// unless force is set.
func CreateExceptions(db *gorm.DB, fallback conflict.Locale) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		agreementID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var in createExceptionsInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !validCommission(*in.CommissionPercent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "commission_percent must be between 0 and 100"})
			return
		}
		in.ExcludeRuleID = nil
		sel, err := in.selection()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		active := in.Active == nil || *in.Active

		var created []models.AgreementException
		var forced []conflict.Conflict
		err = db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			if _, err := lockAgreement(tx, cl.OrgID, agreementID); err != nil {
				return err
			}
			if active {
				found, err := checkConflicts(tx, agreementID, sel)
				if err != nil {
					return err
				}
				if len(found) > 0 && !in.Force {
					return &conflictError{conflicts: found}
				}
				forced = found
			}
			for _, combo := range conflict.Expand(sel) {
				created = append(created, models.AgreementException{
					AgreementID:       agreementID,
					TireBrandID:       combo.Brand.Ptr(),
					TireDiameter:      combo.Diameter.Ptr(),
					CommissionPercent: *in.CommissionPercent,
					Note:              in.Note,
					Active:            active,
				})
			}
			if err := tx.Create(&created).Error; err != nil {
				return err
			}
			ids := make([]int64, 0, len(created))
			for _, e := range created {
				ids = append(ids, e.ID)
			}
			return audit.Record(tx, c, audit.Entry{
				Action:       "exception.create",
				ResourceType: "agreement",
				ResourceID:   agreementID,
				Metadata:     map[string]any{"exception_ids": ids, "forced": len(forced) > 0},
			})
		})
		if err != nil {
			respondWriteError(c, db, fallback, err)
			return
		}
		metrics.ExceptionMutations.WithLabelValues("create").Add(float64(len(created)))

		resp := gin.H{"exceptions": created}
		if len(forced) > 0 {
			labels, err := labelCatalog(db.WithContext(c), requestLocale(c, fallback))
			if err != nil {
				logging.FromGin(c).Warn("failed to render forced conflict warnings",
					zap.Error(err), zap.Int("conflicts", len(forced)))
			} else {
				resp["warnings"] = conflict.Messages(forced, labels)
			}
		}
		c.JSON(http.StatusCreated, resp)
	}
}

type updateExceptionInput struct {
	TireBrandID       *int64   `json:"tire_brand_id"`
	TireDiameter      *string  `json:"tire_diameter"`
	CommissionPercent *float64 `json:"commission_percent" binding:"required"`
	Note              string   `json:"note"`
	Active            *bool    `json:"active"`
	Force             bool     `json:"force"`
}

// findException loads an exception of an agreement of the caller's
// organization, holding the agreement row lock like lockAgreement.
func findException(tx *gorm.DB, orgID uint64, agreementID, exceptionID int64) (models.AgreementException, error) {
	var e models.AgreementException
	if _, err := lockAgreement(tx, orgID, agreementID); err != nil {
		return e, err
	}
	err := tx.Where("id = ? AND agreement_id = ?", exceptionID, agreementID).First(&e).Error
	return e, err
}

// ruleSelection is the selection equivalent of a single exception, excluding itself.
func ruleSelection(e models.AgreementException) conflict.Selection {
	sel := conflict.Selection{ExcludeRuleID: &e.ID}
	if e.TireBrandID != nil {
		sel.BrandIDs = []int64{*e.TireBrandID}
	}
	if d, ok := conflict.DiameterFromPtr(e.TireDiameter).Get(); ok {
		sel.Diameters = []string{d}
	}
	return sel
}

// UpdateException replaces brand, diameter, commission and note of one
// exception. The exception never conflicts with its own stored version.
func UpdateException(db *gorm.DB, fallback conflict.Locale) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		agreementID, ok := paramID(c, "id")
		if !ok {
			return
		}
		exceptionID, ok := paramID(c, "exceptionId")
		if !ok {
			return
		}
		var in updateExceptionInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if !validCommission(*in.CommissionPercent) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "commission_percent must be between 0 and 100"})
			return
		}
		if in.TireBrandID != nil && *in.TireBrandID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tire_brand_id"})
			return
		}
		diameter := conflict.DiameterFromPtr(in.TireDiameter)
		if d, ok := diameter.Get(); ok && len(d) > conflict.MaxDiameterLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "tire_diameter is too long"})
			return
		}

		var updated models.AgreementException
		err := db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			e, err := findException(tx, cl.OrgID, agreementID, exceptionID)
			if err != nil {
				return err
			}
			e.TireBrandID = in.TireBrandID
			e.TireDiameter = diameter.Ptr()
			e.CommissionPercent = *in.CommissionPercent
			e.Note = in.Note
			if in.Active != nil {
				e.Active = *in.Active
			}
			if e.Active {
				found, err := checkConflicts(tx, agreementID, ruleSelection(e))
				if err != nil {
					return err
				}
				if len(found) > 0 && !in.Force {
					return &conflictError{conflicts: found}
				}
			}
			if err := tx.Select("TireBrandID", "TireDiameter", "CommissionPercent", "Note", "Active").Save(&e).Error; err != nil {
				return err
			}
			updated = e
			return audit.Record(tx, c, audit.Entry{
				Action:       "exception.update",
				ResourceType: "agreement_exception",
				ResourceID:   e.ID,
				Metadata: map[string]any{
					"tire_brand_id":      e.TireBrandID,
					"tire_diameter":      e.TireDiameter,
					"commission_percent": e.CommissionPercent,
					"active":             e.Active,
				},
			})
		})
		if err != nil {
			respondWriteError(c, db, fallback, err)
			return
		}
		metrics.ExceptionMutations.WithLabelValues("update").Inc()
		c.JSON(http.StatusOK, gin.H{"exception": updated})
	}
}

// SetExceptionActive switches an exception on or off. Turning one on
// re-runs the conflict check; ?force=true overrides it.
func SetExceptionActive(db *gorm.DB, fallback conflict.Locale, active bool) gin.HandlerFunc {
	action := "deactivate"
	if active {
		action = "activate"
	}
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		agreementID, ok := paramID(c, "id")
		if !ok {
			return
		}
		exceptionID, ok := paramID(c, "exceptionId")
		if !ok {
			return
		}
		force := c.Query("force") == "true"

		var updated models.AgreementException
		err := db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			e, err := findException(tx, cl.OrgID, agreementID, exceptionID)
			if err != nil {
				return err
			}
			if active && !e.Active {
				found, err := checkConflicts(tx, agreementID, ruleSelection(e))
				if err != nil {
					return err
				}
				if len(found) > 0 && !force {
					return &conflictError{conflicts: found}
				}
			}
			e.Active = active
			if err := tx.Model(&e).Update("active", active).Error; err != nil {
				return err
			}
			updated = e
			return audit.Record(tx, c, audit.Entry{
				Action:       "exception." + action,
				ResourceType: "agreement_exception",
				ResourceID:   e.ID,
			})
		})
		if err != nil {
			respondWriteError(c, db, fallback, err)
			return
		}
		metrics.ExceptionMutations.WithLabelValues(action).Inc()
		c.JSON(http.StatusOK, gin.H{"exception": updated})
	}
}

func DeleteException(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		agreementID, ok := paramID(c, "id")
		if !ok {
			return
		}
		exceptionID, ok := paramID(c, "exceptionId")
		if !ok {
			return
		}
		err := db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			e, err := findException(tx, cl.OrgID, agreementID, exceptionID)
			if err != nil {
				return err
			}
			if err := tx.Delete(&e).Error; err != nil {
				return err
			}
			return audit.Record(tx, c, audit.Entry{
				Action:       "exception.delete",
				ResourceType: "agreement_exception",
				ResourceID:   e.ID,
				Metadata:     map[string]any{"agreement_id": agreementID},
			})
		})
		if err != nil {
			respondWriteError(c, db, "", err)
			return
		}
		metrics.ExceptionMutations.WithLabelValues("delete").Inc()
		c.Status(http.StatusNoContent)
	}
}
