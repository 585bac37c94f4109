package repository

import (
	"context"

	"github.com/yuno-ai/yuno-api/internal/models"
	"github.com/yuno-ai/yuno-api/internal/storage"
	"gorm.io/gorm"
)

type SiteRepository struct {
	db *storage.Postgres
}

func NewSiteRepository(db *storage.Postgres) *SiteRepository {
	return &SiteRepository{db: db}
}

func (r *SiteRepository) Create(ctx context.Context, site *models.Site) error {
	return r.db.DB.WithContext(ctx).Create(site).Error
}

func (r *SiteRepository) FindByID(ctx context.Context, id string) (*models.Site, error) {
	var site models.Site
	err := r.db.DB.WithContext(ctx).
		Where("id = ?", id).
		First(&site).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &site, err
}

func (r *SiteRepository) FindByDomain(ctx context.Context, domain string) (*models.Site, error) {
	var site models.Site
	err := r.db.DB.WithContext(ctx).
		Where("lower(domain) = lower(?)", domain).
		First(&site).Error

	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}

	return &site, err
}

func (r *SiteRepository) List(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	err := r.db.DB.WithContext(ctx).
		Order("created_at DESC").
		Find(&sites).Error

	return sites, err
}

func (r *SiteRepository) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	return r.db.DB.WithContext(ctx).
		Model(&models.Site{}).
		Where("id = ?", id).
		Updates(updates).Error
}
