package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"filament-sync/core/storage"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Uploader stores pre-write-back copies of profiles in object storage, so a
// bad merge can always be rolled back by hand.
type Uploader struct {
	client storage.Client
	bucket string
	keep   int
	logger *zap.Logger
}

// NewUploader creates an uploader writing into bucket, keeping at most keep
// snapshots per profile (zero keeps everything).
func NewUploader(client storage.Client, bucket string, keep int, logger *zap.Logger) *Uploader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{client: client, bucket: bucket, keep: keep, logger: logger}
}

// EnsureBucket creates the bucket if it does not exist yet.
func (u *Uploader) EnsureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", u.bucket, err)
	}
	if exists {
		return nil
	}
	if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", u.bucket, err)
	}
	return nil
}

// Snapshot uploads the previous bytes of the profile at path, then prunes
// snapshots beyond the retention cap.
func (u *Uploader) Snapshot(ctx context.Context, path string, data []byte) error {
	object := ObjectName(path, time.Now())
	_, err := u.client.PutObject(ctx, u.bucket, object,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		return fmt.Errorf("upload %s: %w", object, err)
	}
	u.logger.Debug("profile snapshot stored",
		zap.String("path", path),
		zap.String("object", object),
	)
	return u.Prune(ctx, path)
}

// Prune removes the oldest snapshots of the profile at path until at most
// keep remain.
func (u *Uploader) Prune(ctx context.Context, path string) error {
	if u.keep <= 0 {
		return nil
	}

	prefix := ObjectPrefix(path)
	var names []string
	for info := range u.client.ListObjects(ctx, u.bucket, minio.ListObjectsOptions{Prefix: prefix}) {
		if info.Err != nil {
			return fmt.Errorf("list %s: %w", prefix, info.Err)
		}
		names = append(names, info.Key)
	}
	if len(names) <= u.keep {
		return nil
	}

	// Object names embed nanosecond timestamps of equal width, so a
	// lexicographic sort is a chronological one.
	sort.Strings(names)
	for _, name := range names[:len(names)-u.keep] {
		if err := u.client.RemoveObject(ctx, u.bucket, name, minio.RemoveObjectOptions{}); err != nil {
			return fmt.Errorf("remove %s: %w", name, err)
		}
		u.logger.Debug("profile snapshot pruned", zap.String("object", name))
	}
	return nil
}

// ObjectName builds the storage key for one snapshot of one profile.
func ObjectName(path string, at time.Time) string {
	return fmt.Sprintf("%s%d.json", ObjectPrefix(path), at.UnixNano())
}

// ObjectPrefix is the common key prefix for all snapshots of one profile.
func ObjectPrefix(path string) string {
	return fmt.Sprintf("snapshots/%s/", filepath.Base(path))
}
