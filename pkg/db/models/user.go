package models

import (
	"time"

	"github.com/google/uuid"
)

// User role values. Admins are 0 to match the dashboard's legacy encoding.
const (
	RoleAdmin = 0
	RoleUser  = 1
)

// User represents a dashboard account. Coins is the virtual currency
// balance; it is only ever mutated through the guarded adjustment in the
// users repository and is never allowed to go negative.
type User struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email       string     `gorm:"type:text;not null;uniqueIndex"`
	Username    string     `gorm:"type:text;not null"`
	Coins       int64      `gorm:"column:coins;not null;default:0"`
	Role        int        `gorm:"column:role;not null;default:1"`
	ReferredBy  *uuid.UUID `gorm:"column:referred_by;type:uuid"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
	CreatedAt   time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
