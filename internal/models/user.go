package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DashboardUser is an admin account for the tenant dashboard.
type DashboardUser struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Name         string     `json:"name"`
	SiteID       uuid.UUID  `gorm:"type:uuid" json:"site_id"`
	CreatedAt    time.Time  `json:"created_at"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
}

func (u *DashboardUser) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

func (DashboardUser) TableName() string {
	return "dashboard_users"
}
