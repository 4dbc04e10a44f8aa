// Package audit records who changed what into the audit_logs table.
package audit

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"tiremarket/internal/auth"
	"tiremarket/internal/models"
)

// Entry describes one audited action.
type Entry struct {
	Action       string // e.g. "exception.create"
	ResourceType string
	ResourceID   int64
	Metadata     map[string]any
}

// Record writes e attributed to the caller of c. The initiator name is looked
// up from the users table.
func Record(tx *gorm.DB, c *gin.Context, e Entry) error {
	log := models.AuditLog{
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		IP:           c.ClientIP(),
		UserAgent:    c.GetHeader("User-Agent"),
		CreatedAt:    time.Now(),
	}
	if cl, ok := auth.FromContext(c); ok {
		log.UserID = int64(cl.UserID)
		log.OrgID = int64(cl.OrgID)
		var u models.User
		if err := tx.Select("name").First(&u, cl.UserID).Error; err == nil {
			log.InitiatorName = u.Name
		}
	}
	if e.Metadata != nil {
		raw, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		log.Metadata = datatypes.JSON(raw)
	}
	return tx.Create(&log).Error
}
