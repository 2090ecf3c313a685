package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// MockStorage is an in-memory implementation of Storage for testing
type MockStorage struct {
	PingFunc          func(ctx context.Context) error
	GetStoryFunc      func(ctx context.Context) (*scenario.Story, error)
	ListLoreFilesFunc func(ctx context.Context) (map[string][]byte, error)
	WriteLoreFileFunc func(ctx context.Context, name string, data []byte) error

	saveStates map[uuid.UUID]*state.SaveState
	loreFiles  map[string][]byte

	mu sync.Mutex
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

func NewMockStorage() *MockStorage {
	return &MockStorage{
		saveStates: make(map[uuid.UUID]*state.SaveState),
		loreFiles:  make(map[string][]byte),
	}
}

func (m *MockStorage) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockStorage) Close() error {
	return nil
}

func (m *MockStorage) SaveSaveState(ctx context.Context, id uuid.UUID, s *state.SaveState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.saveStates[id] = &cp
	return nil
}

func (m *MockStorage) LoadSaveState(ctx context.Context, id uuid.UUID) (*state.SaveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.saveStates[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (m *MockStorage) DeleteSaveState(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saveStates, id)
	return nil
}

func (m *MockStorage) ResetSaveState(ctx context.Context, id uuid.UUID, hard bool) (*state.SaveState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	old := m.saveStates[id]
	fresh := state.NewSaveState()
	fresh.ID = id
	if !hard && old != nil {
		fresh.MemoryLog = old.MemoryLog
	}
	m.saveStates[id] = fresh
	cp := *fresh
	return &cp, nil
}

func (m *MockStorage) GetStory(ctx context.Context) (*scenario.Story, error) {
	if m.GetStoryFunc != nil {
		return m.GetStoryFunc(ctx)
	}
	return &scenario.Story{
		Name:         "Test Story",
		OpeningScene: state.StartingScene,
		Scenes:       map[string]*state.Scene{},
	}, nil
}

func (m *MockStorage) ListLoreFiles(ctx context.Context) (map[string][]byte, error) {
	if m.ListLoreFilesFunc != nil {
		return m.ListLoreFilesFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	files := make(map[string][]byte, len(m.loreFiles))
	for name, data := range m.loreFiles {
		cp := make([]byte, len(data))
		copy(cp, data)
		files[name] = cp
	}
	return files, nil
}

func (m *MockStorage) WriteLoreFile(ctx context.Context, name string, data []byte) error {
	if m.WriteLoreFileFunc != nil {
		return m.WriteLoreFileFunc(ctx, name, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	m.loreFiles[name] = cp
	return nil
}

// SeedLoreFile installs a lore file into the in-memory corpus.
func (m *MockStorage) SeedLoreFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loreFiles[name] = data
}
