package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/claritydx/feesched-api/internal/config"
)

// SnapshotFetcher reads whole-object rate snapshots from the blob store.
type SnapshotFetcher interface {
	FetchRateSnapshot(ctx context.Context, state, procedureCode string) ([]SnapshotRow, error)
}

// MinioStore wraps the MinIO client and implements SnapshotFetcher.
type MinioStore struct {
	client *minio.Client
	bucket string
	logger zerolog.Logger
}

// NewMinioStore creates and returns a new MinIO-backed snapshot fetcher.
func NewMinioStore(cfg config.ObjectStoreConfig, logger zerolog.Logger) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	logger.Info().
		Str("endpoint", cfg.Endpoint).
		Str("bucket", cfg.Bucket).
		Msg("object store client initialized")

	return &MinioStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// FetchRateSnapshot downloads and decodes the columnar snapshot for one
// (state, procedure_code) key. The object is read whole; there are no range
// reads against the store.
func (s *MinioStore) FetchRateSnapshot(ctx context.Context, state, procedureCode string) ([]SnapshotRow, error) {
	key := fmt.Sprintf("rates/%s/%s.parquet", state, procedureCode)

	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	rows, err := DecodeSnapshot(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", key, err)
	}

	s.logger.Debug().
		Str("key", key).
		Int("rows", len(rows)).
		Msg("fetched rate snapshot")

	return rows, nil
}
