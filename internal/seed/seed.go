package seed

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tiremarket/internal/models"
	"tiremarket/internal/rbac"
)

const (
	AdminEmail = "admin@example.com"
	// AdminPassword must be changed after first login.
	AdminPassword = "admin123"
)

// Summary reports what FirstSetup ensured.
type Summary struct {
	OrgSlug     string
	Roles       []string
	Permissions int
	Brands      int
	Diameters   int
}

var permissions = []models.Permission{
	{Slug: rbac.UsersRead, Description: "View users", Resource: "users", Action: "read"},
	{Slug: rbac.UsersWrite, Description: "Manage users and their roles", Resource: "users", Action: "write"},
	{Slug: rbac.RolesRead, Description: "View roles", Resource: "roles", Action: "read"},
	{Slug: rbac.CatalogRead, Description: "View brands and diameters", Resource: "catalog", Action: "read"},
	{Slug: rbac.CatalogWrite, Description: "Manage brands and diameters", Resource: "catalog", Action: "write"},
	{Slug: rbac.AgreementsRead, Description: "View agreements", Resource: "agreements", Action: "read"},
	{Slug: rbac.AgreementsWrite, Description: "Manage agreements", Resource: "agreements", Action: "write"},
	{Slug: rbac.ExceptionsRead, Description: "View agreement exceptions", Resource: "exceptions", Action: "read"},
	{Slug: rbac.ExceptionsWrite, Description: "Manage agreement exceptions", Resource: "exceptions", Action: "write"},
	{Slug: rbac.AuditRead, Description: "View audit logs", Resource: "audit", Action: "read"},
}

var rolePermissions = map[string][]string{
	"manager": {
		rbac.CatalogRead, rbac.AgreementsRead, rbac.AgreementsWrite,
		rbac.ExceptionsRead, rbac.ExceptionsWrite, rbac.AuditRead, rbac.UsersRead, rbac.RolesRead,
	},
	"viewer": {
		rbac.CatalogRead, rbac.AgreementsRead, rbac.ExceptionsRead, rbac.RolesRead,
	},
}

// FirstSetup idempotently creates the default organization, roles,
// permissions, admin user and the reference catalog.
func FirstSetup(db *gorm.DB, cat Catalog) (Summary, error) {
	var sum Summary
	err := db.Transaction(func(tx *gorm.DB) error {
		org := models.Organization{Name: "Default Organization", Slug: "default"}
		if err := tx.Where("slug = ?", org.Slug).FirstOrCreate(&org).Error; err != nil {
			return fmt.Errorf("ensure org: %w", err)
		}
		sum.OrgSlug = org.Slug

		permIDs := make(map[string]int64, len(permissions))
		for _, p := range permissions {
			tmp := p
			if err := tx.Where("slug = ?", tmp.Slug).FirstOrCreate(&tmp).Error; err != nil {
				return fmt.Errorf("ensure permission %s: %w", tmp.Slug, err)
			}
			permIDs[tmp.Slug] = tmp.ID
		}
		sum.Permissions = len(permIDs)

		roles := []models.Role{
			{OrgID: org.ID, Name: "Administrator", Slug: "admin", IsSystem: true},
			{OrgID: org.ID, Name: "Agreement manager", Slug: "manager", IsSystem: true},
			{OrgID: org.ID, Name: "Viewer", Slug: "viewer", IsSystem: true},
		}
		var adminRoleID int64
		for i := range roles {
			role := &roles[i]
			if err := tx.Where("org_id = ? AND slug = ?", org.ID, role.Slug).FirstOrCreate(role).Error; err != nil {
				return fmt.Errorf("ensure role %s: %w", role.Slug, err)
			}
			sum.Roles = append(sum.Roles, role.Slug)

			slugs := rolePermissions[role.Slug]
			if role.Slug == "admin" {
				adminRoleID = role.ID
				slugs = nil
				for _, p := range permissions {
					slugs = append(slugs, p.Slug)
				}
			}
			links := make([]models.RolePermission, 0, len(slugs))
			for _, s := range slugs {
				links = append(links, models.RolePermission{RoleID: role.ID, PermissionID: permIDs[s]})
			}
			if len(links) == 0 {
				continue
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
				return fmt.Errorf("link role %s permissions: %w", role.Slug, err)
			}
		}

		var admin models.User
		err := tx.Where("email = ?", AdminEmail).First(&admin).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			hash, err := bcrypt.GenerateFromPassword([]byte(AdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash admin password: %w", err)
			}
			admin = models.User{
				OrgID:        org.ID,
				Email:        AdminEmail,
				Name:         "Admin User",
				Status:       models.UserActive,
				PasswordHash: string(hash),
			}
			if err := tx.Create(&admin).Error; err != nil {
				return fmt.Errorf("create admin user: %w", err)
			}
		case err != nil:
			return fmt.Errorf("find admin user: %w", err)
		}
		link := models.UserRole{UserID: admin.ID, RoleID: adminRoleID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link).Error; err != nil {
			return fmt.Errorf("link admin role: %w", err)
		}

		for _, name := range cat.Brands {
			b := models.TireBrand{Name: name}
			if err := tx.Where("name = ?", name).FirstOrCreate(&b).Error; err != nil {
				return fmt.Errorf("ensure brand %s: %w", name, err)
			}
		}
		for _, d := range cat.Diameters {
			row := models.TireDiameter{Value: d.Value, Label: d.Label}
			if err := tx.Where("value = ?", d.Value).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("ensure diameter %s: %w", d.Value, err)
			}
		}
		sum.Brands = len(cat.Brands)
		sum.Diameters = len(cat.Diameters)
		return nil
	})
	return sum, err
}
