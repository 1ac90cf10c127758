package snapshot_test

import (
	"context"
	"testing"
	"time"

	"filament-sync/core/storage/mocks"
	"filament-sync/feature/snapshot"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func objectChannel(keys ...string) <-chan minio.ObjectInfo {
	ch := make(chan minio.ObjectInfo, len(keys))
	for _, key := range keys {
		ch <- minio.ObjectInfo{Key: key}
	}
	close(ch)
	return ch
}

func TestEnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("ExistingBucket", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", ctx, "filament-snapshots").Return(true, nil)

		u := snapshot.NewUploader(client, "filament-snapshots", 0, nil)
		require.NoError(t, u.EnsureBucket(ctx))
		client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("CreatesMissingBucket", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", ctx, "filament-snapshots").Return(false, nil)
		client.On("MakeBucket", ctx, "filament-snapshots", mock.Anything).Return(nil)

		u := snapshot.NewUploader(client, "filament-snapshots", 0, nil)
		require.NoError(t, u.EnsureBucket(ctx))
		client.AssertExpectations(t)
	})

	t.Run("ExistsCheckFails", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("BucketExists", ctx, "filament-snapshots").Return(false, assert.AnError)

		u := snapshot.NewUploader(client, "filament-snapshots", 0, nil)
		assert.Error(t, u.EnsureBucket(ctx))
	})
}

func TestSnapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("UploadsUnderProfilePrefix", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("PutObject", ctx, "filament-snapshots",
			mock.MatchedBy(func(name string) bool {
				return len(name) > len("snapshots/pla-red.json/") &&
					name[:len("snapshots/pla-red.json/")] == "snapshots/pla-red.json/"
			}),
			mock.Anything, int64(4), mock.Anything).
			Return(minio.UploadInfo{}, nil)

		u := snapshot.NewUploader(client, "filament-snapshots", 0, nil)
		require.NoError(t, u.Snapshot(ctx, "/profiles/pla-red.json", []byte("data")))
		client.AssertExpectations(t)
	})

	t.Run("UploadFailure", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("PutObject", ctx, "filament-snapshots",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(minio.UploadInfo{}, assert.AnError)

		u := snapshot.NewUploader(client, "filament-snapshots", 0, nil)
		assert.Error(t, u.Snapshot(ctx, "/profiles/pla-red.json", []byte("data")))
	})
}

func TestPrune(t *testing.T) {
	ctx := context.Background()
	prefix := snapshot.ObjectPrefix("/profiles/pla-red.json")

	t.Run("RemovesOldestBeyondCap", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("ListObjects", ctx, "filament-snapshots", mock.Anything).
			Return(objectChannel(prefix+"100.json", prefix+"300.json", prefix+"200.json"))
		client.On("RemoveObject", ctx, "filament-snapshots", prefix+"100.json", mock.Anything).
			Return(nil)

		u := snapshot.NewUploader(client, "filament-snapshots", 2, nil)
		require.NoError(t, u.Prune(ctx, "/profiles/pla-red.json"))
		client.AssertExpectations(t)
		client.AssertNumberOfCalls(t, "RemoveObject", 1)
	})

	t.Run("UnderCapRemovesNothing", func(t *testing.T) {
		client := &mocks.Client{}
		client.On("ListObjects", ctx, "filament-snapshots", mock.Anything).
			Return(objectChannel(prefix + "100.json"))

		u := snapshot.NewUploader(client, "filament-snapshots", 2, nil)
		require.NoError(t, u.Prune(ctx, "/profiles/pla-red.json"))
		client.AssertNotCalled(t, "RemoveObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("ZeroKeepDisablesPruning", func(t *testing.T) {
		client := &mocks.Client{}
		u := snapshot.NewUploader(client, "filament-snapshots", 0, nil)
		require.NoError(t, u.Prune(ctx, "/profiles/pla-red.json"))
		client.AssertNotCalled(t, "ListObjects", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestObjectName(t *testing.T) {
	at := time.Unix(0, 123456789)
	name := snapshot.ObjectName("/profiles/pla-red.json", at)
	assert.Equal(t, "snapshots/pla-red.json/123456789.json", name)
}
