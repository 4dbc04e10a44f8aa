package models

// UserRole is a row of the user_roles join table behind User.Roles.
type UserRole struct {
	UserID int64 `gorm:"primaryKey"`
	RoleID int64 `gorm:"primaryKey"`
}
