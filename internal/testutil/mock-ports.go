package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"mito-gallery-service/internal/core/domain"
	"mito-gallery-service/internal/core/ports/output"
)

// MockMetadataSource is a mock of MetadataSource.
type MockMetadataSource struct {
	mock.Mock
}

func (m *MockMetadataSource) Load(ctx context.Context) ([]domain.Entity, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Entity), args.Error(1)
}

func (m *MockMetadataSource) Name() string {
	args := m.Called()
	return args.String(0)
}

// MockMeshSource is a mock of MeshSource.
type MockMeshSource struct {
	mock.Mock
}

func (m *MockMeshSource) Mesh(ctx context.Context, segmentID int64) (*domain.Mesh, error) {
	args := m.Called(ctx, segmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Mesh), args.Error(1)
}

// MockRenderer is a mock of Renderer.
type MockRenderer struct {
	mock.Mock
}

func (m *MockRenderer) Render(ctx context.Context, entity domain.Entity, angle domain.ViewAngle) ([]byte, error) {
	args := m.Called(ctx, entity, angle)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockArtifactStore is a mock of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

func (m *MockArtifactStore) Exists(ctx context.Context, key domain.ArtifactKey) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockArtifactStore) Put(ctx context.Context, key domain.ArtifactKey, data []byte) error {
	args := m.Called(ctx, key, data)
	return args.Error(0)
}

func (m *MockArtifactStore) Clear(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockArtifactStore) URL(key domain.ArtifactKey) string {
	args := m.Called(key)
	return args.String(0)
}

// MemoryStore is an in-memory ArtifactStore for tests that care about
// state rather than call expectations.
type MemoryStore struct {
	mu    sync.Mutex
	items map[domain.ArtifactKey][]byte
	puts  int
}

var _ ports.ArtifactStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[domain.ArtifactKey][]byte)}
}

func (s *MemoryStore) Exists(_ context.Context, key domain.ArtifactKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[key]
	return ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key domain.ArtifactKey, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[key] = data
	s.puts++
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.items)
	s.items = make(map[domain.ArtifactKey][]byte)
	return n, nil
}

func (s *MemoryStore) URL(key domain.ArtifactKey) string {
	return fmt.Sprintf("/static/screenshots/%d/%d.png", key.EntityID, key.Degrees)
}

func (s *MemoryStore) Puts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puts
}

// Seed marks the given angles of an entity as already rendered.
func (s *MemoryStore) Seed(entityID int64, degrees ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range degrees {
		s.items[domain.ArtifactKey{EntityID: entityID, Degrees: d}] = []byte("png")
	}
}
