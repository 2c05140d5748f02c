package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/archivohistorico/heritage/app/models"
)

// mediaRepository implements the MediaRepository interface
type mediaRepository struct {
	db *gorm.DB
}

// NewMediaRepository creates a new media repository instance
func NewMediaRepository(db *gorm.DB) MediaRepository {
	return &mediaRepository{db: db}
}

// Create creates a new media entry in the database
func (r *mediaRepository) Create(ctx context.Context, medio *models.Medio) error {
	return r.db.WithContext(ctx).Create(medio).Error
}

// GetByUUID retrieves a media entry by its UUID
func (r *mediaRepository) GetByUUID(ctx context.Context, uuid string) (*models.Medio, error) {
	var medio models.Medio
	err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&medio).Error
	if err != nil {
		return nil, err
	}
	return &medio, nil
}

// List retrieves media entries with pagination, newest first
func (r *mediaRepository) List(ctx context.Context, offset, limit int) ([]models.Medio, error) {
	var media []models.Medio
	err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&media).Error
	return media, err
}

// Delete soft deletes a media entry by its ID
func (r *mediaRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Medio{}, id).Error
}
