package storage

import (
	"context"

	"github.com/slok/taskflow/internal/model"
)

// BlobRepository is the interface for the persisted key-value blob store shared by
// the tabs of an origin.
type BlobRepository interface {
	// GetBlob returns the current blob of a key, model.ErrNotFound if missing.
	GetBlob(ctx context.Context, key string) (*model.Blob, error)
	// PutBlob stores the blob value and returns it with the assigned revision.
	// Revisions are monotonically increasing across all the keys.
	PutBlob(ctx context.Context, b model.Blob) (model.Blob, error)
	// ListBlobsSince returns the blobs written after the revision, ordered by revision.
	ListBlobsSince(ctx context.Context, revision int64) ([]model.Blob, error)
}
