package services

import (
	"context"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
)

// LLMService defines the interface for the generation backends. Both
// methods return raw model text; extraction and parsing of the JSON
// payload is the caller's job, since no provider output is trusted to
// be well-formed.
type LLMService interface {
	// InitModel prepares the backing model on startup.
	InitModel(ctx context.Context, modelName string) error

	// GenerateScene produces the raw text for a scene request.
	GenerateScene(ctx context.Context, messages []chat.ChatMessage) (string, error)

	// GenerateLorePatch produces the raw text for a narrative-save
	// lore update.
	GenerateLorePatch(ctx context.Context, messages []chat.ChatMessage) (string, error)
}
