package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	gcs "cloud.google.com/go/storage"
	"github.com/gofiber/fiber/v2/log"
	"google.golang.org/api/option"
)

// GCSConfig holds the Google Cloud Storage settings
type GCSConfig struct {
	Bucket          string
	Prefix          string
	CredentialsFile string
	PublicURL       string
}

// GCS stores objects in a Google Cloud Storage bucket.
type GCS struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	cfg    GCSConfig
}

// NewGCS opens a client for the configured bucket.
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("GCS_BUCKET is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client: %w", err)
	}

	log.Infof("[GCSStorage] Initialized client for bucket: %s", cfg.Bucket)
	return &GCS{client: client, bucket: client.Bucket(cfg.Bucket), cfg: cfg}, nil
}

// Close releases the underlying client.
func (g *GCS) Close() error {
	return g.client.Close()
}

func (g *GCS) key(p string) string {
	return cleanKey(path.Join(g.cfg.Prefix, p))
}

func (g *GCS) Exists(ctx context.Context, p string) (bool, error) {
	_, err := g.attrs(ctx, p)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (g *GCS) Put(ctx context.Context, p string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = ContentTypeOf(p)
	}
	w := g.bucket.Object(g.key(p)).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("failed to upload %s to GCS: %w", p, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize upload %s to GCS: %w", p, err)
	}

	log.Debugf("[GCSStorage] Uploaded gs://%s/%s (%d bytes)", g.cfg.Bucket, g.key(p), len(data))
	return nil
}

func (g *GCS) Get(ctx context.Context, p string) ([]byte, error) {
	r, err := g.bucket.Object(g.key(p)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to open object %s: %w", p, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", p, err)
	}
	return data, nil
}

func (g *GCS) Delete(ctx context.Context, p string) error {
	err := g.bucket.Object(g.key(p)).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete object from GCS: %w", err)
	}
	return nil
}

func (g *GCS) URL(p string) string {
	if g.cfg.PublicURL != "" {
		return joinURL(g.cfg.PublicURL, g.key(p))
	}
	return "https://storage.googleapis.com/" + g.cfg.Bucket + "/" + g.key(p)
}

func (g *GCS) Size(ctx context.Context, p string) (int64, error) {
	attrs, err := g.attrs(ctx, p)
	if err != nil {
		return 0, err
	}
	return attrs.Size, nil
}

func (g *GCS) LastModified(ctx context.Context, p string) (time.Time, error) {
	attrs, err := g.attrs(ctx, p)
	if err != nil {
		return time.Time{}, err
	}
	return attrs.Updated, nil
}

func (g *GCS) attrs(ctx context.Context, p string) (*gcs.ObjectAttrs, error) {
	attrs, err := g.bucket.Object(g.key(p)).Attrs(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, fmt.Errorf("%s: %w", p, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to stat object %s: %w", p, err)
	}
	return attrs, nil
}
