package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/archivohistorico/heritage/app/models"
	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
)

// ImageRecord is a record's image fields after they crossed the database boundary
type ImageRecord struct {
	ID      uint64
	Image   imagepath.StoredPath
	Gallery []imagepath.StoredPath
}

// GalleryPaths returns the raw gallery paths in order
func (r ImageRecord) GalleryPaths() []string {
	out := make([]string, len(r.Gallery))
	for i, p := range r.Gallery {
		out[i] = p.String()
	}
	return out
}

// ImageRecordRepository defines the image field operations of one record model
type ImageRecordRepository interface {
	// Model is the name used in routes and on the command line
	Model() string
	// Category selects the image policy
	Category() string
	HasGallery() bool

	// FindWithImage returns records whose image is set. Unless force is set,
	// records already pointing at a migrated path are left out.
	FindWithImage(ctx context.Context, force bool) ([]ImageRecord, error)
	// FindWithGallery returns records with a non-empty gallery
	FindWithGallery(ctx context.Context) ([]ImageRecord, error)
	GetByID(ctx context.Context, id uint64) (*ImageRecord, error)
	// UpdateImage stores path on the record; an empty path clears the field
	UpdateImage(ctx context.Context, id uint64, path string) error
	UpdateGallery(ctx context.Context, id uint64, paths []string) error
}

// MediaRepository defines the operations on verbatim media uploads
type MediaRepository interface {
	Create(ctx context.Context, medio *models.Medio) error
	GetByUUID(ctx context.Context, uuid string) (*models.Medio, error)
	List(ctx context.Context, offset, limit int) ([]models.Medio, error)
	Delete(ctx context.Context, id uint64) error
}

// Repositories struct holds all repository instances
type Repositories struct {
	Images *Registry
	Media  MediaRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	images := make([]ImageRecordRepository, 0, len(RecordColumns))
	for _, cols := range RecordColumns {
		images = append(images, NewImageRecordRepository(db, cols))
	}
	return &Repositories{
		Images: NewRegistry(images...),
		Media:  NewMediaRepository(db),
	}
}
