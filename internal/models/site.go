package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Site is one registered tenant: a customer website with a single
// authorized domain and one subscription plan.
type Site struct {
	ID            uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	Domain        string         `gorm:"uniqueIndex;not null" json:"domain"`
	PlanType      string         `gorm:"default:'free'" json:"plan_type"`
	PlanActive    bool           `gorm:"default:true" json:"plan_active"`
	WidgetEnabled bool           `gorm:"default:true" json:"widget_enabled"`
	Theme         string         `gorm:"default:'dark'" json:"theme"`
	CustomConfig  string         `gorm:"type:text" json:"custom_config,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

func (s *Site) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (Site) TableName() string {
	return "sites"
}
