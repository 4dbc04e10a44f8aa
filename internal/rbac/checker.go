package rbac

import (
	"context"

	"gorm.io/gorm"
)

const (
	UsersRead       = "users:read"
	UsersWrite      = "users:write"
	RolesRead       = "roles:read"
	CatalogRead     = "catalog:read"
	CatalogWrite    = "catalog:write"
	AgreementsRead  = "agreements:read"
	AgreementsWrite = "agreements:write"
	ExceptionsRead  = "exceptions:read"
	ExceptionsWrite = "exceptions:write"
	AuditRead       = "audit:read"
)

type Checker struct{ DB *gorm.DB }

func (c Checker) scope(ctx context.Context, userID, orgID uint64) *gorm.DB {
	// user_roles -> roles (same org) -> role_permissions -> permissions
	return c.DB.WithContext(ctx).
		Table("user_roles ur").
		Joins("JOIN roles r ON r.id = ur.role_id AND r.org_id = ?", orgID).
		Joins("JOIN role_permissions rp ON rp.role_id = r.id").
		Joins("JOIN permissions p ON p.id = rp.permission_id").
		Where("ur.user_id = ?", userID)
}

func (c Checker) Can(ctx context.Context, userID, orgID uint64, permSlug string) (bool, error) {
	var count int64
	err := c.scope(ctx, userID, orgID).Where("p.slug = ?", permSlug).Count(&count).Error
	return count > 0, err
}

// Permissions returns the distinct permission slugs granted to the user.
func (c Checker) Permissions(ctx context.Context, userID, orgID uint64) ([]string, error) {
	var slugs []string
	err := c.scope(ctx, userID, orgID).Distinct("p.slug").Order("p.slug").Pluck("p.slug", &slugs).Error
	return slugs, err
}
