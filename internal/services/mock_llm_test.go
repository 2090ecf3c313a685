package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
)

func TestMockLLMService(t *testing.T) {
	mockService := NewMockLLMAPI()

	err := mockService.InitModel(context.Background(), "test-model")
	if err != nil {
		t.Errorf("InitModel failed: %v", err)
	}

	if len(mockService.InitModelCalls) != 1 {
		t.Errorf("Expected 1 InitModel call, got %d", len(mockService.InitModelCalls))
	}

	if mockService.InitModelCalls[0] != "test-model" {
		t.Errorf("Expected model name 'test-model', got '%s'", mockService.InitModelCalls[0])
	}

	messages := []chat.ChatMessage{
		{Role: chat.ChatRoleUser, Content: "Resolve the choice"},
	}

	response, err := mockService.GenerateScene(context.Background(), messages)
	if err != nil {
		t.Errorf("GenerateScene failed: %v", err)
	}

	if response == "" {
		t.Error("Expected a default scene response")
	}

	calls := mockService.SceneCalls()
	if len(calls) != 1 {
		t.Errorf("Expected 1 GenerateScene call, got %d", len(calls))
	}
	if len(calls) == 1 && len(calls[0].Messages) != 1 {
		t.Errorf("Expected 1 recorded message, got %d", len(calls[0].Messages))
	}
}

func TestMockLLMService_CustomSceneFunc(t *testing.T) {
	mockService := NewMockLLMAPI()

	mockService.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return `{"id": "act1_custom", "title": "Custom", "text": "x", "choices": []}`, nil
	}

	response, err := mockService.GenerateScene(context.Background(), nil)
	if err != nil {
		t.Errorf("GenerateScene failed: %v", err)
	}
	if response != `{"id": "act1_custom", "title": "Custom", "text": "x", "choices": []}` {
		t.Errorf("Expected custom response, got '%s'", response)
	}
}

func TestMockLLMService_ErrorHandling(t *testing.T) {
	mockService := NewMockLLMAPI()

	expectedErr := fmt.Errorf("generation failed")
	mockService.SetGenerateSceneError(expectedErr)

	_, err := mockService.GenerateScene(context.Background(), nil)
	if err == nil {
		t.Error("Expected error, got nil")
	}

	mockService.SetGenerateLorePatchError(expectedErr)
	_, err = mockService.GenerateLorePatch(context.Background(), nil)
	if err == nil {
		t.Error("Expected error, got nil")
	}
}

func TestMockLLMService_Reset(t *testing.T) {
	mockService := NewMockLLMAPI()

	_, _ = mockService.GenerateScene(context.Background(), nil)
	_, _ = mockService.GenerateLorePatch(context.Background(), nil)
	mockService.Reset()

	if len(mockService.SceneCalls()) != 0 {
		t.Error("Expected call tracking to be cleared after Reset")
	}
}
