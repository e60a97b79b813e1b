package model

import "time"

type UserRole string

const (
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

// User is a storefront account. Admins manage the catalog; everyone else
// can only place and track orders.
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Email        string     `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `gorm:"type:varchar(100);not null" json:"name"`
	Phone        string     `gorm:"type:varchar(30)" json:"phone,omitempty"`
	Role         UserRole   `gorm:"type:varchar(20);default:'user';index" json:"role"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
