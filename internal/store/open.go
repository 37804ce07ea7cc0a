package store

import (
	"context"
	"fmt"

	"fpl-cache-api/internal/config"
	"fpl-cache-api/internal/snapshot"
)

// Open builds the snapshot store selected by cfg.Backend.
func Open(ctx context.Context, cfg config.ArchiveConfig) (snapshot.Store, error) {
	d := Decompressor{Mode: cfg.Decompressor, XZPath: cfg.XZPath}
	switch cfg.Backend {
	case "", "fs":
		return NewFSStore(cfg.Dir, d), nil
	case "s3":
		return NewS3Store(ctx, S3Options{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		}, d)
	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Backend)
	}
}
