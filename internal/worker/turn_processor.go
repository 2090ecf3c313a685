package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/lorekeeper/internal/services"
	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/genjson"
	"github.com/jwebster45206/lorekeeper/pkg/prompts"
	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// TurnProcessor resolves one player turn: apply the chosen choice's
// effects, advance the position, and produce the scene the player now
// faces. Hand-authored scenes and the scene cache are consulted before
// generation; generation failures fall back to a deterministic scene,
// so a turn never errors out of the game.
type TurnProcessor struct {
	storage        storage.Storage
	llm            services.LLMService
	logger         *slog.Logger
	generateScenes bool
}

func NewTurnProcessor(st storage.Storage, llm services.LLMService, logger *slog.Logger, generateScenes bool) *TurnProcessor {
	return &TurnProcessor{
		storage:        st,
		llm:            llm,
		logger:         logger,
		generateScenes: generateScenes,
	}
}

// CurrentScene returns the scene the save state is positioned at:
// hand-authored first, then the per-save cache, then the deterministic
// fallback.
func (p *TurnProcessor) CurrentScene(story *scenario.Story, s *state.SaveState) *state.Scene {
	if sc, ok := story.Scene(s.Position.Scene); ok {
		return sc
	}
	if sc, ok := s.SceneCache[s.Position.Scene]; ok && sc != nil {
		return sc
	}
	return state.FallbackScene(s)
}

// ProcessTurn resolves a single turn for an existing save state.
func (p *TurnProcessor) ProcessTurn(ctx context.Context, req chat.TurnRequest) (*chat.TurnResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s, err := p.storage.LoadSaveState(ctx, req.SaveStateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load savestate: %w", err)
	}
	if s == nil {
		return nil, fmt.Errorf("savestate %s not found", req.SaveStateID)
	}
	s.EnsureMaps()

	story, err := p.storage.GetStory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load story: %w", err)
	}

	current := p.CurrentScene(story, s)
	choice := findChoice(current, req.ChoiceID)
	if choice == nil {
		return nil, fmt.Errorf("choice %q is not available in scene %q", req.ChoiceID, current.ID)
	}

	worker := state.NewEffectsWorker(s, p.logger)
	if choice.Effects != nil {
		worker.Apply(choice.Effects)
	} else {
		worker.Apply(&state.Effects{})
	}

	s.StoryLog = append(s.StoryLog, state.StoryLogEntry{
		SceneID:   current.ID,
		Title:     current.Title,
		Choice:    choice.Label,
		Effects:   choice.Effects,
		Timestamp: time.Now().UTC(),
	})
	if current.Summary != "" {
		s.AppendMemory(current.Summary)
	} else {
		s.AppendMemory(fmt.Sprintf("%s: chose %q", current.Title, choice.Label))
	}

	// A beat completes the moment its triggers hold. The next pending
	// beat then becomes the steering target for generation.
	if b := scenario.NextBeat(story.Beats, s, s.Position.Scene); b != nil && b.Triggers.Met(s, s.Position.Scene) {
		scenario.CompleteBeat(s, b)
		p.logger.Info("Beat completed", "beat", b.ID, "savestate_id", s.ID)
	}

	next, generated := p.nextScene(ctx, story, s, choice)

	s.Position.Scene = next.ID
	if generated || !storyHasScene(story, next.ID) {
		s.SceneCache[next.ID] = next
	}

	if err := p.storage.SaveSaveState(ctx, s.ID, s); err != nil {
		return nil, fmt.Errorf("failed to save savestate: %w", err)
	}

	return &chat.TurnResponse{
		SaveStateID: s.ID,
		SceneID:     next.ID,
		Scene:       next,
		Generated:   generated,
	}, nil
}

// nextScene picks the scene that follows a resolved choice. The
// returned bool reports whether the scene came from the model.
func (p *TurnProcessor) nextScene(ctx context.Context, story *scenario.Story, s *state.SaveState, choice *state.Choice) (*state.Scene, bool) {
	if choice.Next != "" {
		if sc, ok := story.Scene(choice.Next); ok {
			return sc, false
		}
		if sc, ok := s.SceneCache[choice.Next]; ok && sc != nil {
			return sc, false
		}
		p.logger.Warn("Choice points at unknown scene, generating instead",
			"next", choice.Next, "savestate_id", s.ID)
	}

	if !p.generateScenes || p.llm == nil {
		sc := state.FallbackScene(s)
		state.NormalizeScene(s, sc, false)
		return sc, false
	}

	sc, err := p.generateScene(ctx, story, s)
	if err != nil {
		p.logger.Warn("Scene generation failed, serving fallback",
			"error", err, "savestate_id", s.ID)
		sc := state.FallbackScene(s)
		state.NormalizeScene(s, sc, false)
		return sc, false
	}
	return sc, true
}

func (p *TurnProcessor) generateScene(ctx context.Context, story *scenario.Story, s *state.SaveState) (*state.Scene, error) {
	snippets, err := p.loreSnippets(ctx, story)
	if err != nil {
		p.logger.Warn("Failed to load lore for prompt", "error", err)
		snippets = nil
	}

	var prevSummary string
	if n := len(s.StoryLog); n > 0 {
		last := s.StoryLog[n-1]
		prevSummary = fmt.Sprintf("%s: the player chose %q", last.Title, last.Choice)
	}

	builder := prompts.New().
		WithSaveState(s).
		WithLoreSnippets(snippets).
		WithMemoryTail(s.RecentMemories(prompts.MemoryTailLimit)).
		WithPreviousScene(prevSummary)
	if b := scenario.NextBeat(story.Beats, s, s.Position.Scene); b != nil {
		builder = builder.WithBeat(b)
	}

	messages, err := builder.Build()
	if err != nil {
		return nil, err
	}

	raw, err := p.llm.GenerateScene(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("scene generation request failed: %w", err)
	}

	var sc state.Scene
	if err := genjson.Unmarshal(raw, &sc); err != nil {
		return nil, fmt.Errorf("scene response unparseable: %w", err)
	}
	if sc.Text == "" {
		return nil, fmt.Errorf("scene response has no text")
	}

	state.NormalizeScene(s, &sc, true)
	return &sc, nil
}

// loreSnippets returns the lore text for the prompt, restricted to the
// story's declared lore files when it declares any.
func (p *TurnProcessor) loreSnippets(ctx context.Context, story *scenario.Story) (map[string]string, error) {
	files, err := p.storage.ListLoreFiles(ctx)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]bool, len(story.LoreFiles))
	for _, name := range story.LoreFiles {
		allowed[name] = true
	}

	snippets := make(map[string]string, len(files))
	for name, data := range files {
		if len(allowed) > 0 && !allowed[name] {
			continue
		}
		snippets[name] = string(data)
	}
	return snippets, nil
}

func findChoice(sc *state.Scene, choiceID string) *state.Choice {
	for i := range sc.Choices {
		if sc.Choices[i].ID == choiceID {
			return &sc.Choices[i]
		}
	}
	return nil
}

func storyHasScene(story *scenario.Story, id string) bool {
	_, ok := story.Scene(id)
	return ok
}
