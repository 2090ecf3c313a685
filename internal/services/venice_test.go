package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
)

func TestNewVeniceService(t *testing.T) {
	apiKey := "test-api-key"
	modelName := "test-model"

	service := NewVeniceService(apiKey, modelName)

	if service.apiKey != apiKey {
		t.Errorf("Expected apiKey %s, got %s", apiKey, service.apiKey)
	}

	if service.modelName != modelName {
		t.Errorf("Expected modelName %s, got %s", modelName, service.modelName)
	}

	if service.httpClient == nil {
		t.Error("Expected httpClient to be initialized")
	}
}

func TestNewVeniceService_DefaultModel(t *testing.T) {
	service := NewVeniceService("test-key", "")

	if service.modelName != DefaultVeniceModel {
		t.Errorf("Expected default model %s, got %s", DefaultVeniceModel, service.modelName)
	}
}

func TestVeniceService_InitModel(t *testing.T) {
	service := NewVeniceService("test-key", "test-model")

	if err := service.InitModel(context.Background(), "test-model"); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestVeniceChatRequestStructure(t *testing.T) {
	messages := []chat.ChatMessage{
		{Role: "user", Content: "Hello"},
		{Role: "assistant", Content: "Hi there!"},
	}

	req := VeniceChatRequest{
		Model:       "test-model",
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1000,
		Stream:      false,
	}

	if req.Model != "test-model" {
		t.Errorf("Expected model 'test-model', got '%s'", req.Model)
	}

	if len(req.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(req.Messages))
	}

	if req.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %f", req.Temperature)
	}
}

func TestVeniceService_SceneResponseFormat(t *testing.T) {
	service := NewVeniceService("test-key", "test-model")

	format := service.getSceneResponseFormat()
	if format == nil {
		t.Fatal("Expected a response format")
	}

	if format.Type != "json_schema" {
		t.Errorf("Expected type 'json_schema', got '%s'", format.Type)
	}

	// The schema must serialize cleanly for the request body.
	data, err := json.Marshal(format)
	if err != nil {
		t.Fatalf("Failed to marshal response format: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to round-trip response format: %v", err)
	}

	schema, ok := decoded["json_schema"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected json_schema object in serialized format")
	}
	if schema["name"] != "generate_scene" {
		t.Errorf("Expected schema name 'generate_scene', got '%v'", schema["name"])
	}
}
