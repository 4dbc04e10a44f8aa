package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tiremarket/internal/conflict"
	"tiremarket/internal/models"
)

func ListBrands(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var brands []models.TireBrand
		if err := db.WithContext(c).Order("name").Find(&brands).Error; err != nil {
			internalError(c, "failed to list brands", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"brands": brands})
	}
}

func CreateBrand(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Name string `json:"name" binding:"required"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		name := strings.TrimSpace(in.Name)
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name must not be blank"})
			return
		}

		var existing int64
		if err := db.WithContext(c).Model(&models.TireBrand{}).Where("name = ?", name).Count(&existing).Error; err != nil {
			internalError(c, "failed to create brand", err)
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "brand already exists"})
			return
		}

		brand := models.TireBrand{Name: name}
		if err := db.WithContext(c).Create(&brand).Error; err != nil {
			internalError(c, "failed to create brand", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"brand": brand})
	}
}

func ListDiameters(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var diameters []models.TireDiameter
		if err := db.WithContext(c).Order("id").Find(&diameters).Error; err != nil {
			internalError(c, "failed to list diameters", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"diameters": diameters})
	}
}

// CreateDiameter stores a diameter value; the label defaults to "R<value>".
func CreateDiameter(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in struct {
			Value string `json:"value" binding:"required"`
			Label string `json:"label"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		value := strings.TrimSpace(in.Value)
		if value == "" || len(value) > conflict.MaxDiameterLen {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid diameter value"})
			return
		}
		label := strings.TrimSpace(in.Label)
		if label == "" {
			label = "R" + value
		}

		var existing int64
		if err := db.WithContext(c).Model(&models.TireDiameter{}).Where("value = ?", value).Count(&existing).Error; err != nil {
			internalError(c, "failed to create diameter", err)
			return
		}
		if existing > 0 {
			c.JSON(http.StatusConflict, gin.H{"error": "diameter already exists"})
			return
		}

		d := models.TireDiameter{Value: value, Label: label}
		if err := db.WithContext(c).Create(&d).Error; err != nil {
			internalError(c, "failed to create diameter", err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"diameter": d})
	}
}
