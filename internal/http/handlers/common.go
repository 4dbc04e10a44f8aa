package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tiremarket/internal/auth"
	"tiremarket/internal/conflict"
	"tiremarket/internal/logging"
	"tiremarket/internal/models"
)

var errAgreementNotFound = errors.New("agreement not found")

// claimsOrAbort returns the JWT claims or writes 401.
func claimsOrAbort(c *gin.Context) (*auth.Claims, bool) {
	cl, ok := auth.FromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return cl, true
}

// paramID parses a positive int64 path parameter or writes 400.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// internalError logs err and writes a 500 without leaking details.
func internalError(c *gin.Context, msg string, err error) {
	logging.FromGin(c).Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

// findAgreement loads an agreement of the caller's organization.
func findAgreement(tx *gorm.DB, orgID uint64, id int64) (models.Agreement, error) {
	var a models.Agreement
	err := tx.Where("id = ? AND org_id = ?", id, orgID).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return a, errAgreementNotFound
	}
	return a, err
}

// lockAgreement is findAgreement with the row locked until tx ends, so
// guarded writes to one agreement's exceptions run one at a time and each
// conflict scan sees the rows committed by the previous writer. SQLite
// ignores the clause; its writers are serialized by the database lock.
func lockAgreement(tx *gorm.DB, orgID uint64, id int64) (models.Agreement, error) {
	return findAgreement(tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}), orgID, id)
}

// requestLocale honours ?lang= first, then Accept-Language, then fallback.
func requestLocale(c *gin.Context, fallback conflict.Locale) conflict.Locale {
	if l, ok := conflict.ParseLocale(c.Query("lang")); ok {
		return l
	}
	return conflict.MatchLocale(c.GetHeader("Accept-Language"), fallback)
}

// labelCatalog builds conflict labels from the brand and diameter tables.
func labelCatalog(tx *gorm.DB, locale conflict.Locale) (*conflict.Catalog, error) {
	var brands []models.TireBrand
	if err := tx.Find(&brands).Error; err != nil {
		return nil, err
	}
	var diameters []models.TireDiameter
	if err := tx.Find(&diameters).Error; err != nil {
		return nil, err
	}
	return conflict.NewCatalog(locale, models.ConflictBrands(brands), models.ConflictDiameters(diameters)), nil
}
