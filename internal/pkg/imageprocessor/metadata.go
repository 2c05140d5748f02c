package imageprocessor

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/mknote"
)

func init() {
	// Register Nikon and Canon maker notes
	exif.RegisterParsers(mknote.All...)
}

// Metadata describes a stored original for the admin panel
type Metadata struct {
	Path         string            `json:"path"`
	Size         int64             `json:"size"`
	LastModified time.Time         `json:"last_modified"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	Format       string            `json:"format"`
	CameraModel  *string           `json:"camera_model,omitempty"`
	TakenAt      *time.Time        `json:"taken_at,omitempty"`
	Latitude     *float64          `json:"latitude,omitempty"`
	Longitude    *float64          `json:"longitude,omitempty"`
	Exif         map[string]string `json:"exif,omitempty"`
}

// Metadata reads size, modification time, dimensions and EXIF data of a stored image
func (s *Service) Metadata(ctx context.Context, original string) (Metadata, error) {
	meta := Metadata{Path: original}

	size, err := s.store.Size(ctx, original)
	if err != nil {
		return meta, storageErr("size", original, err)
	}
	meta.Size = size

	modified, err := s.store.LastModified(ctx, original)
	if err != nil {
		return meta, storageErr("lastModified", original, err)
	}
	meta.LastModified = modified

	data, err := s.store.Get(ctx, original)
	if err != nil {
		return meta, storageErr("get", original, err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return meta, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	meta.Width, meta.Height, meta.Format = cfg.Width, cfg.Height, format

	extractExif(&meta, data)
	return meta, nil
}

func extractExif(meta *Metadata, data []byte) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// Most re-encoded variants carry no EXIF data
		log.Debugf("[ImageService] No EXIF data for %s: %v", meta.Path, err)
		return
	}

	meta.Exif = make(map[string]string)
	for _, tag := range []exif.FieldName{
		exif.Model, exif.Make, exif.Software, exif.Artist,
		exif.Copyright, exif.ExposureTime, exif.FNumber, exif.ISOSpeedRatings,
		exif.FocalLength, exif.DateTimeOriginal, exif.ImageDescription,
	} {
		if tagVal, err := x.Get(tag); err == nil {
			meta.Exif[string(tag)] = strings.Trim(tagVal.String(), `"`)
		}
	}

	if m, err := x.Get(exif.Model); err == nil {
		model := strings.TrimSpace(strings.Trim(m.String(), `"`))
		meta.CameraModel = &model
	}
	if dt, err := x.DateTime(); err == nil {
		meta.TakenAt = &dt
	}
	if lat, long, err := x.LatLong(); err == nil {
		meta.Latitude = &lat
		meta.Longitude = &long
	}
}
