package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tiremarket/internal/auth"
	"tiremarket/internal/models"
	"tiremarket/internal/rbac"
)

// LoginHandler authenticates the user and returns JWT
func LoginHandler(db *gorm.DB, jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		email := strings.ToLower(strings.TrimSpace(input.Email))
		if err := db.WithContext(c).Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
			return
		}
		if user.Status != models.UserActive {
			c.JSON(http.StatusForbidden, gin.H{"error": "account suspended"})
			return
		}

		token, err := auth.IssueToken(user, jwtSecret, time.Now())
		if err != nil {
			internalError(c, "failed to create token", err)
			return
		}

		// cookie for the browser frontend, JSON for API clients
		c.SetCookie(auth.TokenCookie, token, int(auth.TokenTTL.Seconds()), "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{
			"token": token,
			"user": gin.H{
				"id":     user.ID,
				"email":  user.Email,
				"name":   user.Name,
				"org_id": user.OrgID,
			},
		})
	}
}

// LogoutHandler clears the token cookie.
func LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(auth.TokenCookie, "", -1, "/", "", false, true)
		c.Status(http.StatusNoContent)
	}
}

// MeHandler returns the current user and the permission slugs it holds.
func MeHandler(db *gorm.DB, chk rbac.Checker) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		var user models.User
		if err := db.WithContext(c).First(&user, cl.UserID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		perms, err := chk.Permissions(c, cl.UserID, cl.OrgID)
		if err != nil {
			internalError(c, "failed to load permissions", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": user, "permissions": perms})
	}
}
