// Package storagemock has testify mocks for the storage interfaces.
package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/storage"
)

var _ storage.BlobRepository = &MockBlobRepository{}

// MockBlobRepository is a mock of storage.BlobRepository.
type MockBlobRepository struct {
	mock.Mock
}

// GetBlob mocks storage.BlobRepository.GetBlob.
func (m *MockBlobRepository) GetBlob(ctx context.Context, key string) (*model.Blob, error) {
	args := m.Called(ctx, key)
	var b *model.Blob
	if v := args.Get(0); v != nil {
		b = v.(*model.Blob)
	}
	return b, args.Error(1)
}

// PutBlob mocks storage.BlobRepository.PutBlob.
func (m *MockBlobRepository) PutBlob(ctx context.Context, b model.Blob) (model.Blob, error) {
	args := m.Called(ctx, b)
	return args.Get(0).(model.Blob), args.Error(1)
}

// ListBlobsSince mocks storage.BlobRepository.ListBlobsSince.
func (m *MockBlobRepository) ListBlobsSince(ctx context.Context, revision int64) ([]model.Blob, error) {
	args := m.Called(ctx, revision)
	var bs []model.Blob
	if v := args.Get(0); v != nil {
		bs = v.([]model.Blob)
	}
	return bs, args.Error(1)
}
