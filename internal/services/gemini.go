package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiService implements LLMService for Google Gemini. This is the
// primary provider: the lore-update pipeline was designed around it.
type GeminiService struct {
	client    *genai.Client
	modelName string
	logger    *slog.Logger
}

func NewGeminiService(ctx context.Context, apiKey string, modelName string, logger *slog.Logger) (*GeminiService, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		client:    client,
		modelName: modelName,
		logger:    logger,
	}, nil
}

func (g *GeminiService) Close() error {
	return g.client.Close()
}

func (g *GeminiService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		g.modelName = modelName
	}
	return nil
}

// generate flattens the chat messages into one prompt and makes a
// single GenerateContent call. System messages become the model's
// system instruction.
func (g *GeminiService) generate(ctx context.Context, messages []chat.ChatMessage, temperature float32) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.SetTemperature(temperature)

	var systemParts []string
	var userParts []string
	for _, msg := range messages {
		if msg.Role == chat.ChatRoleSystem {
			systemParts = append(systemParts, msg.Content)
		} else {
			userParts = append(userParts, msg.Content)
		}
	}
	if len(systemParts) > 0 {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(strings.Join(systemParts, "\n\n"))},
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(strings.Join(userParts, "\n\n")))
	if err != nil {
		return "", fmt.Errorf("Gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no content returned from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", fmt.Errorf("unexpected response type from Gemini")
	}
	return out, nil
}

// GenerateScene produces scene JSON text using Gemini
func (g *GeminiService) GenerateScene(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	return g.generate(ctx, messages, 0.7)
}

// GenerateLorePatch produces a lore update with temperature 0 for
// deterministic output
func (g *GeminiService) GenerateLorePatch(ctx context.Context, messages []chat.ChatMessage) (string, error) {
	return g.generate(ctx, messages, 0)
}
