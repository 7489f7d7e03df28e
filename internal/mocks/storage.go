package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockImageStore is a mock implementation of storage.ImageStore
type MockImageStore struct {
	mock.Mock
}

// Put mocks the Put method
func (m *MockImageStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

// Delete mocks the Delete method
func (m *MockImageStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// URL mocks the URL method
func (m *MockImageStore) URL(key string) string {
	args := m.Called(key)
	return args.String(0)
}
