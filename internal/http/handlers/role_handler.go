package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tiremarket/internal/models"
)

// ListRoles returns the roles of the caller's organization with their permissions.
func ListRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		var roles []models.Role
		if err := db.WithContext(c).Preload("Permissions").Where("org_id = ?", cl.OrgID).Order("id").Find(&roles).Error; err != nil {
			internalError(c, "failed to list roles", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roles": roles})
	}
}
