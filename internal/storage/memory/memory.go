package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// RepositoryConfig is the configuration for the memory repository.
type RepositoryConfig struct {
	Logger log.Logger
	// TimeNow is used to set the blob update time, mainly for testing.
	TimeNow func() time.Time
}

func (c *RepositoryConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.Memory"})

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	return nil
}

// Repository is an in-memory implementation of storage.BlobRepository.
type Repository struct {
	blobs    map[string]model.Blob
	revision int64
	timeNow  func() time.Time
	mu       sync.RWMutex
	logger   log.Logger
}

// NewRepository creates a new memory repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Repository{
		blobs:   make(map[string]model.Blob),
		timeNow: cfg.TimeNow,
		logger:  cfg.Logger,
	}, nil
}

// GetBlob retrieves the blob of a key.
func (r *Repository) GetBlob(ctx context.Context, key string) (*model.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, model.ErrNotFound)
	}

	b = copyBlob(b)
	return &b, nil
}

// PutBlob stores a blob assigning it the next revision.
func (r *Repository) PutBlob(ctx context.Context, b model.Blob) (model.Blob, error) {
	if b.Key == "" {
		return model.Blob{}, fmt.Errorf("blob key is required: %w", model.ErrNotValid)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.revision++
	b = copyBlob(b)
	b.Revision = r.revision
	b.UpdatedAt = r.timeNow().UTC()
	r.blobs[b.Key] = b

	r.logger.Debugf("Stored blob %s at revision %d", b.Key, b.Revision)
	return copyBlob(b), nil
}

// ListBlobsSince returns the blobs written after the revision.
func (r *Repository) ListBlobsSince(ctx context.Context, revision int64) ([]model.Blob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	blobs := []model.Blob{}
	for _, b := range r.blobs {
		if b.Revision > revision {
			blobs = append(blobs, copyBlob(b))
		}
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Revision < blobs[j].Revision })
	return blobs, nil
}

func copyBlob(b model.Blob) model.Blob {
	if b.Value != nil {
		b.Value = append([]byte{}, b.Value...)
	}
	return b
}
