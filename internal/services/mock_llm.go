package services

import (
	"context"
	"sync"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
)

// MockLLMAPI is a mock implementation of LLMService for testing
type MockLLMAPI struct {
	InitModelFunc         func(ctx context.Context, modelName string) error
	GenerateSceneFunc     func(ctx context.Context, messages []chat.ChatMessage) (string, error)
	GenerateLorePatchFunc func(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// Track calls for testing
	InitModelCalls         []string
	GenerateSceneCalls     []GenerateCall
	GenerateLorePatchCalls []GenerateCall

	mu sync.Mutex // protects all fields above
}

type GenerateCall struct {
	Messages []chat.ChatMessage
}

// NewMockLLMAPI creates a new mock LLM service
func NewMockLLMAPI() *MockLLMAPI {
	return &MockLLMAPI{
		InitModelCalls:         make([]string, 0),
		GenerateSceneCalls:     make([]GenerateCall, 0),
		GenerateLorePatchCalls: make([]GenerateCall, 0),
	}
}

// InitModel mocks model initialization
func (m *MockLLMAPI) InitModel(ctx context.Context, modelName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.InitModelCalls = append(m.InitModelCalls, modelName)

	if m.InitModelFunc != nil {
		return m.InitModelFunc(ctx, modelName)
	}
	return nil
}

// GenerateScene mocks scene generation
func (m *MockLLMAPI) GenerateScene(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateSceneCalls = append(m.GenerateSceneCalls, GenerateCall{Messages: messages})

	if m.GenerateSceneFunc != nil {
		return m.GenerateSceneFunc(ctx, messages)
	}

	// Default: a minimal well-formed scene.
	return `{"id": "act1_mock_scene", "title": "Mock Scene", "text": "A quiet moment.",
		"choices": [{"label": "Continue"}]}`, nil
}

// GenerateLorePatch mocks lore patch generation
func (m *MockLLMAPI) GenerateLorePatch(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.GenerateLorePatchCalls = append(m.GenerateLorePatchCalls, GenerateCall{Messages: messages})

	if m.GenerateLorePatchFunc != nil {
		return m.GenerateLorePatchFunc(ctx, messages)
	}
	return `{"files": {}, "summary": "no changes"}`, nil
}

// Reset clears all call tracking
func (m *MockLLMAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InitModelCalls = make([]string, 0)
	m.GenerateSceneCalls = make([]GenerateCall, 0)
	m.GenerateLorePatchCalls = make([]GenerateCall, 0)
}

// SetGenerateSceneError sets up the mock to return an error on GenerateScene
func (m *MockLLMAPI) SetGenerateSceneError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "", err
	}
}

// SetGenerateLorePatchError sets up the mock to return an error on GenerateLorePatch
func (m *MockLLMAPI) SetGenerateLorePatchError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateLorePatchFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "", err
	}
}

// SceneCalls returns a copy of the scene call tracking data
func (m *MockLLMAPI) SceneCalls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	calls := make([]GenerateCall, len(m.GenerateSceneCalls))
	copy(calls, m.GenerateSceneCalls)
	return calls
}
