package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivohistorico/heritage/internal/pkg/env"
)

// Remote store drivers
const (
	DriverS3  = "s3"
	DriverGCS = "gcs"
)

// Config holds the settings of both backends
type Config struct {
	PublicRoot  string
	PublicURL   string
	MediaDriver string
	S3          S3Config
	GCS         GCSConfig
}

// LoadConfig reads the storage configuration from the environment
func LoadConfig() Config {
	return Config{
		PublicRoot:  env.GetEnv("STORAGE_PUBLIC_ROOT", "./storage/public"),
		PublicURL:   env.GetEnv("STORAGE_PUBLIC_URL", "/storage"),
		MediaDriver: strings.ToLower(env.GetEnv("MEDIA_STORAGE_DRIVER", "")),
		S3: S3Config{
			AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
			Region:          env.GetEnv("S3_REGION", "us-east-1"),
			Bucket:          env.GetEnv("S3_BUCKET_NAME", ""),
			EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
			Prefix:          env.GetEnv("S3_PREFIX", "media"),
			PublicURL:       env.GetEnv("S3_PUBLIC_URL", ""),
		},
		GCS: GCSConfig{
			Bucket:          env.GetEnv("GCS_BUCKET", ""),
			Prefix:          env.GetEnv("GCS_PREFIX", "media"),
			CredentialsFile: env.GetEnv("GCS_CREDENTIALS_FILE", ""),
			PublicURL:       env.GetEnv("GCS_PUBLIC_URL", ""),
		},
	}
}

// NewPublicDisk returns the backend images are written to.
func NewPublicDisk(cfg Config) *Local {
	return NewLocal(cfg.PublicRoot, cfg.PublicURL)
}

// NewMediaStore returns the remote backend for large media, or nil when none is configured.
func NewMediaStore(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.MediaDriver {
	case "":
		return nil, nil
	case DriverS3:
		s, err := NewS3(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverGCS:
		g, err := NewGCS(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown MEDIA_STORAGE_DRIVER %q", cfg.MediaDriver)
	}
}
