package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/yuno-ai/yuno-api/internal/models"
	"github.com/yuno-ai/yuno-api/internal/storage"
	"gorm.io/gorm"
)

type DashboardUserRepository struct {
	db *storage.Postgres
}

func NewDashboardUserRepository(db *storage.Postgres) *DashboardUserRepository {
	return &DashboardUserRepository{db: db}
}

func (r *DashboardUserRepository) Create(ctx context.Context, user *models.DashboardUser) error {
	return r.db.DB.WithContext(ctx).Create(user).Error
}

func (r *DashboardUserRepository) FindByEmail(ctx context.Context, email string) (*models.DashboardUser, error) {
	var user models.DashboardUser
	err := r.db.DB.WithContext(ctx).
		Where("email = ?", email).
		First(&user).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &user, err
}

func (r *DashboardUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	return r.db.DB.WithContext(ctx).
		Model(&models.DashboardUser{}).
		Where("id = ?", id).
		Update("last_login_at", &now).Error
}
