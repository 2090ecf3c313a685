package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lorekeeper/internal/services"
	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testStory() *scenario.Story {
	return &scenario.Story{
		Name:         "Test Story",
		OpeningScene: state.StartingScene,
		Scenes: map[string]*state.Scene{
			state.StartingScene: {
				ID:    state.StartingScene,
				Title: "The Gel Awakens",
				Text:  "You wake inside the gel.",
				Choices: []state.Choice{
					{ID: "step_out", Label: "Step out",
						Effects: &state.Effects{Stats: map[string]state.StatDelta{"Insight": 2}},
						Next:    "act1_threshold"},
					{ID: "wander", Label: "Wander into the dark"},
				},
			},
			"act1_threshold": {
				ID:      "act1_threshold",
				Title:   "The Threshold",
				Text:    "A door of light stands open.",
				Summary: "The player crossed the threshold.",
				Choices: []state.Choice{
					{ID: "enter", Label: "Enter"},
				},
			},
		},
		Beats: []scenario.Beat{
			{ID: "first_steps", Title: "First Steps", Act: 1, Chapter: 0, Order: 1},
		},
	}
}

func setupTurnProcessor(t *testing.T, generateScenes bool) (*TurnProcessor, *storage.MockStorage, *services.MockLLMAPI) {
	t.Helper()
	mockStorage := storage.NewMockStorage()
	mockStorage.GetStoryFunc = func(ctx context.Context) (*scenario.Story, error) {
		return testStory(), nil
	}
	mockLLM := services.NewMockLLMAPI()
	return NewTurnProcessor(mockStorage, mockLLM, testLogger(), generateScenes), mockStorage, mockLLM
}

func TestTurnProcessor_HandAuthoredNext(t *testing.T) {
	p, mockStorage, mockLLM := setupTurnProcessor(t, true)
	ctx := context.Background()

	s := state.NewSaveState()
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	resp, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "step_out"})
	require.NoError(t, err)

	assert.Equal(t, "act1_threshold", resp.SceneID)
	assert.False(t, resp.Generated)
	assert.Empty(t, mockLLM.SceneCalls(), "hand-authored succession must not call the model")

	saved, err := mockStorage.LoadSaveState(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "act1_threshold", saved.Position.Scene)
	assert.Equal(t, 3, saved.Stats["Insight"])

	require.Len(t, saved.StoryLog, 1)
	assert.Equal(t, state.StartingScene, saved.StoryLog[0].SceneID)
	assert.Equal(t, "Step out", saved.StoryLog[0].Choice)
	assert.NotEmpty(t, saved.MemoryLog)
}

func TestTurnProcessor_GeneratedScene(t *testing.T) {
	p, mockStorage, mockLLM := setupTurnProcessor(t, true)
	ctx := context.Background()

	mockLLM.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return `{"title": "The Hollow Gate", "text": "Stone teeth part before you.",
			"choices": [{"label": "Slip through"}, {"label": "Knock"}]}`, nil
	}

	s := state.NewSaveState()
	s.Position.Scene = "act1_threshold"
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	resp, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "enter"})
	require.NoError(t, err)

	assert.True(t, resp.Generated)
	assert.True(t, strings.HasPrefix(resp.SceneID, "act1_"), "generated scene id must be act-namespaced, got %q", resp.SceneID)
	require.NotNil(t, resp.Scene)
	assert.Len(t, resp.Scene.Choices, state.SceneChoiceCount)

	saved, err := mockStorage.LoadSaveState(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.SceneID, saved.Position.Scene)
	assert.Contains(t, saved.SceneCache, resp.SceneID)
}

func TestTurnProcessor_GenerationFailureFallsBack(t *testing.T) {
	p, mockStorage, mockLLM := setupTurnProcessor(t, true)
	ctx := context.Background()

	mockLLM.SetGenerateSceneError(fmt.Errorf("provider unavailable"))

	s := state.NewSaveState()
	s.Position.Scene = "act1_threshold"
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	resp, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "enter"})
	require.NoError(t, err, "a failed generation must never fail the turn")

	assert.False(t, resp.Generated)
	assert.True(t, strings.HasSuffix(resp.SceneID, "_auto"))
	require.NotNil(t, resp.Scene)
	assert.Equal(t, "A Fork in the Road", resp.Scene.Title)
	assert.Len(t, resp.Scene.Choices, state.SceneChoiceCount)
}

func TestTurnProcessor_UnparseableSceneFallsBack(t *testing.T) {
	p, mockStorage, mockLLM := setupTurnProcessor(t, true)
	ctx := context.Background()

	mockLLM.GenerateSceneFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "The gate opens and nothing else happens.", nil
	}

	s := state.NewSaveState()
	s.Position.Scene = "act1_threshold"
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	resp, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "enter"})
	require.NoError(t, err)
	assert.False(t, resp.Generated)
	assert.True(t, strings.HasSuffix(resp.SceneID, "_auto"))
}

func TestTurnProcessor_GenerationDisabled(t *testing.T) {
	p, mockStorage, mockLLM := setupTurnProcessor(t, false)
	ctx := context.Background()

	s := state.NewSaveState()
	s.Position.Scene = "act1_threshold"
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	resp, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "enter"})
	require.NoError(t, err)

	assert.False(t, resp.Generated)
	assert.Empty(t, mockLLM.SceneCalls())
	assert.True(t, strings.HasSuffix(resp.SceneID, "_auto"))
}

func TestTurnProcessor_InvalidChoice(t *testing.T) {
	p, mockStorage, _ := setupTurnProcessor(t, true)
	ctx := context.Background()

	s := state.NewSaveState()
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	_, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "fly_away"})
	assert.Error(t, err)
}

func TestTurnProcessor_MissingSaveState(t *testing.T) {
	p, _, _ := setupTurnProcessor(t, true)

	s := state.NewSaveState()
	_, err := p.ProcessTurn(context.Background(), chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "step_out"})
	assert.Error(t, err)
}

func TestTurnProcessor_BeatCompletion(t *testing.T) {
	p, mockStorage, _ := setupTurnProcessor(t, true)
	ctx := context.Background()

	s := state.NewSaveState()
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	_, err := p.ProcessTurn(ctx, chat.TurnRequest{SaveStateID: s.ID, ChoiceID: "step_out"})
	require.NoError(t, err)

	saved, err := mockStorage.LoadSaveState(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, true, saved.Flags["beat:first_steps"])
}
