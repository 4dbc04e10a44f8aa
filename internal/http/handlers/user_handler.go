package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tiremarket/internal/audit"
	"tiremarket/internal/models"
)

// ListUsers returns the users of the caller's organization with their roles.
func ListUsers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		var users []models.User
		if err := db.WithContext(c).Preload("Roles").Where("org_id = ?", cl.OrgID).Order("id").Find(&users).Error; err != nil {
			internalError(c, "failed to list users", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"users": users})
	}
}

// CreateUser inserts a user into the caller's organization.
func CreateUser(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		var in struct {
			Email    string `json:"email" binding:"required,email"`
			Name     string `json:"name" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		in.Email = strings.TrimSpace(strings.ToLower(in.Email))
		in.Name = strings.TrimSpace(in.Name)
		if len(in.Password) < 8 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "password must be at least 8 characters"})
			return
		}

		var existing int64
		if err := db.WithContext(c).Model(&models.User{}).Where("email = ?", in.Email).Count(&existing).Error; err != nil {
			internalError(c, "failed to create user", err)
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "email already exists"})
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			internalError(c, "failed to hash password", err)
			return
		}
		user := models.User{
			OrgID:        int64(cl.OrgID),
			Email:        in.Email,
			Name:         in.Name,
			Status:       models.UserActive,
			PasswordHash: string(hash),
		}
		err = db.WithContext(c).Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return audit.Record(tx, c, audit.Entry{
				Action:       "user.create",
				ResourceType: "user",
				ResourceID:   user.ID,
				Metadata:     map[string]any{"email": user.Email},
			})
		})
		if err != nil {
			internalError(c, "failed to create user", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"user": user})
	}
}

// AssignRoles replaces the roles of a user. Expects {"role_ids": [1, 2]}.
func AssignRoles(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := claimsOrAbort(c)
		if !ok {
			return
		}
		userID, ok := paramID(c, "id")
		if !ok {
			return
		}
		var in struct {
			RoleIDs []int64 `json:"role_ids"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		tx := db.WithContext(c)
		var user models.User
		if err := tx.Where("id = ? AND org_id = ?", userID, cl.OrgID).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		var roles []models.Role
		if len(in.RoleIDs) > 0 {
			if err := tx.Where("id IN ? AND org_id = ?", in.RoleIDs, cl.OrgID).Find(&roles).Error; err != nil {
				internalError(c, "failed to load roles", err)
				return
			}
			if len(roles) != len(in.RoleIDs) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown role id"})
				return
			}
		}

		err := tx.Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&user).Association("Roles").Replace(roles); err != nil {
				return err
			}
			return audit.Record(tx, c, audit.Entry{
				Action:       "user.assign_roles",
				ResourceType: "user",
				ResourceID:   user.ID,
				Metadata:     map[string]any{"role_ids": in.RoleIDs},
			})
		})
		if err != nil {
			internalError(c, "failed to assign roles", err)
			return
		}
		user.Roles = roles
		c.JSON(http.StatusOK, gin.H{"user": user})
	}
}
