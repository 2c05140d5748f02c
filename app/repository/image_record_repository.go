package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/archivohistorico/heritage/app/models"
	"github.com/archivohistorico/heritage/internal/pkg/imagepath"
)

// ImageColumns describes where a model keeps its image fields
type ImageColumns struct {
	Model    string
	Table    string
	Category string
	Image    string
	Gallery  string // empty when the model has no gallery
}

// RecordColumns lists every model owning an image field, in migration order
var RecordColumns = []ImageColumns{
	{Model: "estandartes", Table: models.Estandarte{}.TableName(), Category: "estandartes", Image: "imagen", Gallery: "galeria"},
	{Model: "presidentes", Table: models.Presidente{}.TableName(), Category: "presidentes", Image: "foto"},
	{Model: "publicaciones", Table: models.Publicacion{}.TableName(), Category: "publicaciones", Image: "portada"},
	{Model: "distinciones", Table: models.Distincion{}.TableName(), Category: "distinciones", Image: "imagen"},
}

// imageRecordRepository implements ImageRecordRepository on one table
type imageRecordRepository struct {
	db   *gorm.DB
	cols ImageColumns
}

// NewImageRecordRepository creates a repository for the table described by cols
func NewImageRecordRepository(db *gorm.DB, cols ImageColumns) ImageRecordRepository {
	return &imageRecordRepository{db: db, cols: cols}
}

type imageRow struct {
	ID      uint64
	Image   *string
	Gallery models.StringList
}

func (r *imageRecordRepository) Model() string    { return r.cols.Model }
func (r *imageRecordRepository) Category() string { return r.cols.Category }
func (r *imageRecordRepository) HasGallery() bool { return r.cols.Gallery != "" }

func (r *imageRecordRepository) table(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.cols.Table).Where("deleted_at IS NULL")
}

func (r *imageRecordRepository) selectColumns() string {
	sel := "id, " + r.cols.Image + " AS image"
	if r.HasGallery() {
		sel += ", " + r.cols.Gallery + " AS gallery"
	}
	return sel
}

// migratedPattern matches any stored path inside an originals directory
var migratedPattern = "%/" + imagepath.OriginalsDir + "/%"

// withImageQuery selects rows whose image is set. Without force, already migrated paths are excluded.
func (r *imageRecordRepository) withImageQuery(ctx context.Context, force bool) *gorm.DB {
	q := r.table(ctx).
		Select(r.selectColumns()).
		Where(r.cols.Image + " IS NOT NULL").
		Where(r.cols.Image + " <> ''")
	if !force {
		q = q.Where(r.cols.Image+" NOT LIKE ?", migratedPattern)
	}
	return q.Order("id")
}

// FindWithImage retrieves records whose image field is set
func (r *imageRecordRepository) FindWithImage(ctx context.Context, force bool) ([]ImageRecord, error) {
	var rows []imageRow
	if err := r.withImageQuery(ctx, force).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to select %s with image: %w", r.cols.Model, err)
	}
	return toRecords(rows), nil
}

// FindWithGallery retrieves records with a gallery
func (r *imageRecordRepository) FindWithGallery(ctx context.Context) ([]ImageRecord, error) {
	if !r.HasGallery() {
		return nil, nil
	}

	var rows []imageRow
	err := r.table(ctx).
		Select(r.selectColumns()).
		Where(r.cols.Gallery + " IS NOT NULL").
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to select %s with gallery: %w", r.cols.Model, err)
	}

	records := toRecords(rows)
	out := records[:0]
	for _, rec := range records {
		if len(rec.Gallery) > 0 {
			out = append(out, rec)
		}
	}
	return out, nil
}

// GetByID retrieves the image fields of one record
func (r *imageRecordRepository) GetByID(ctx context.Context, id uint64) (*ImageRecord, error) {
	var rows []imageRow
	err := r.table(ctx).Select(r.selectColumns()).Where("id = ?", id).Limit(1).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	rec := toRecord(rows[0])
	return &rec, nil
}

// UpdateImage overwrites the image field; an empty path stores NULL
func (r *imageRecordRepository) UpdateImage(ctx context.Context, id uint64, path string) error {
	var value interface{}
	if path != "" {
		value = path
	}
	return r.update(ctx, id, r.cols.Image, value)
}

// UpdateGallery overwrites the gallery field
func (r *imageRecordRepository) UpdateGallery(ctx context.Context, id uint64, paths []string) error {
	if !r.HasGallery() {
		return fmt.Errorf("%s has no gallery", r.cols.Model)
	}
	return r.update(ctx, id, r.cols.Gallery, models.StringList(paths))
}

func (r *imageRecordRepository) update(ctx context.Context, id uint64, column string, value interface{}) error {
	res := r.table(ctx).Where("id = ?", id).Updates(map[string]interface{}{
		column:       value,
		"updated_at": time.Now(),
	})
	if res.Error != nil {
		return fmt.Errorf("failed to update %s %d: %w", r.cols.Model, id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func toRecords(rows []imageRow) []ImageRecord {
	out := make([]ImageRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toRecord(row))
	}
	return out
}

// toRecord is the one place raw paths from the database are tagged
func toRecord(row imageRow) ImageRecord {
	rec := ImageRecord{ID: row.ID}
	if row.Image != nil {
		rec.Image = imagepath.Parse(*row.Image)
	}
	for _, p := range row.Gallery {
		rec.Gallery = append(rec.Gallery, imagepath.Parse(p))
	}
	return rec
}
