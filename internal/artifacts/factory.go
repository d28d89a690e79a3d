package artifacts

import (
	"context"
	"fmt"

	"xdt-go/internal/config"
	"xdt-go/internal/xdt"
)

// NewArtifactStoreFromConfig creates an ArtifactStore based on the config type.
func NewArtifactStoreFromConfig(ctx context.Context, cfg config.ArtifactsConfig) (xdt.ArtifactStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem artifact store requires dir to be set")
		}
		return NewFileSystemStore(cfg.Dir)
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
	default:
		return nil, fmt.Errorf("unknown artifact store type: %s", cfg.Type)
	}
}
