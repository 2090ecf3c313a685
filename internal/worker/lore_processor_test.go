package worker

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lorekeeper/internal/services"
	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

const act1Lore = `grace:
  status: Ally
  notes: Met at the fork.
hollow_gate:
  state: sealed
`

func setupLoreProcessor(t *testing.T) (*LoreProcessor, *storage.MockStorage, *services.MockLLMAPI) {
	t.Helper()
	mockStorage := storage.NewMockStorage()
	mockStorage.SeedLoreFile("act_1.yaml", []byte(act1Lore))
	mockLLM := services.NewMockLLMAPI()
	return NewLoreProcessor(mockStorage, mockLLM, testLogger()), mockStorage, mockLLM
}

func TestLoreProcessor_BindingPatch(t *testing.T) {
	p, mockStorage, mockLLM := setupLoreProcessor(t)
	ctx := context.Background()

	mockLLM.GenerateLorePatchFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return `{"files": {"act_1.yaml": {"bindings": {"hollow_gate": "state: open"}}},
			"summary": "The hollow gate was opened."}`, nil
	}

	result, err := p.ProcessNarrativeSave(ctx, uuid.Nil, "The party forced the hollow gate open.")
	require.NoError(t, err)
	assert.True(t, result.Changed())

	files, err := mockStorage.ListLoreFiles(ctx)
	require.NoError(t, err)
	updated := string(files["act_1.yaml"])
	assert.Contains(t, updated, "state: open")
	assert.Contains(t, updated, "grace:", "untouched bindings must survive")
	assert.Contains(t, updated, "Met at the fork.")
}

func TestLoreProcessor_UnparseableResponse(t *testing.T) {
	p, mockStorage, mockLLM := setupLoreProcessor(t)
	ctx := context.Background()

	mockLLM.GenerateLorePatchFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return "I could not produce a patch, sorry.", nil
	}

	result, err := p.ProcessNarrativeSave(ctx, uuid.Nil, "Something happened.")
	require.NoError(t, err, "an unusable response is not an error")
	assert.False(t, result.Changed())

	files, err := mockStorage.ListLoreFiles(ctx)
	require.NoError(t, err)
	assert.Equal(t, act1Lore, string(files["act_1.yaml"]), "corpus must be untouched")
}

func TestLoreProcessor_UnknownFileSkipped(t *testing.T) {
	p, _, mockLLM := setupLoreProcessor(t)
	ctx := context.Background()

	mockLLM.GenerateLorePatchFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return `{"files": {"act_99.yaml": {"bindings": {"villain": "name: Xyr"}}}}`, nil
	}

	result, err := p.ProcessNarrativeSave(ctx, uuid.Nil, "A villain appeared.")
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Contains(t, result.SkippedFiles, "act_99.yaml")
}

func TestLoreProcessor_ProviderError(t *testing.T) {
	p, _, mockLLM := setupLoreProcessor(t)

	mockLLM.SetGenerateLorePatchError(fmt.Errorf("provider unavailable"))

	_, err := p.ProcessNarrativeSave(context.Background(), uuid.Nil, "Something happened.")
	assert.Error(t, err)
}

func TestLoreProcessor_SummaryRecorded(t *testing.T) {
	p, mockStorage, mockLLM := setupLoreProcessor(t)
	ctx := context.Background()

	s := state.NewSaveState()
	require.NoError(t, mockStorage.SaveSaveState(ctx, s.ID, s))

	mockLLM.GenerateLorePatchFunc = func(ctx context.Context, messages []chat.ChatMessage) (string, error) {
		return `{"files": {"act_1.yaml": {"bindings": {"hollow_gate": "state: open"}}},
			"summary": "The hollow gate was opened."}`, nil
	}

	_, err := p.ProcessNarrativeSave(ctx, s.ID, "The party forced the hollow gate open.")
	require.NoError(t, err)

	saved, err := mockStorage.LoadSaveState(ctx, s.ID)
	require.NoError(t, err)
	assert.Contains(t, saved.MemoryLog, "The hollow gate was opened.")
}

func TestLoreProcessor_EmptyCorpus(t *testing.T) {
	mockStorage := storage.NewMockStorage()
	mockLLM := services.NewMockLLMAPI()
	p := NewLoreProcessor(mockStorage, mockLLM, testLogger())

	result, err := p.ProcessNarrativeSave(context.Background(), uuid.Nil, "Something happened.")
	require.NoError(t, err)
	assert.False(t, result.Changed())
	assert.Empty(t, mockLLM.GenerateLorePatchCalls)
}
