package storage

import (
	"context"
	"log"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"iceberg-service/internal/config"
)

// Archiver copies original GeoTIFF uploads into an object storage bucket.
// Display PNGs stay on local disk for static serving; the bucket keeps the
// geotransform-bearing originals durable.
type Archiver struct {
	client *minio.Client
	bucket string
}

// NewArchiver initializes a MinIO client and ensures the archive bucket
// exists. Returns nil when archival is not configured.
func NewArchiver(cfg *config.Config) (*Archiver, error) {
	if !cfg.MinioEnabled() {
		return nil, nil
	}

	minioClient, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := minioClient.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := minioClient.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
		log.Printf("Created MinIO bucket %s", cfg.MinioBucket)
	}

	return &Archiver{client: minioClient, bucket: cfg.MinioBucket}, nil
}

// ArchiveRaster uploads a local GeoTIFF under the given storage key.
// A nil receiver is a no-op so callers need no configuration checks.
func (a *Archiver) ArchiveRaster(ctx context.Context, localPath, key string) error {
	if a == nil {
		return nil
	}
	_, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{
		ContentType: "image/tiff",
	})
	return err
}
