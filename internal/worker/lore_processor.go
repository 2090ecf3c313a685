package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/internal/services"
	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/pkg/genjson"
	"github.com/jwebster45206/lorekeeper/pkg/lore"
	"github.com/jwebster45206/lorekeeper/pkg/prompts"
)

// LoreProcessor runs a narrative save: it asks the model to fold a
// narrative log into the lore corpus, then applies the proposed patch
// through the safe merger. An unusable model response leaves the corpus
// untouched and is never an error.
type LoreProcessor struct {
	storage storage.Storage
	llm     services.LLMService
	merger  *lore.SafeMerger
	logger  *slog.Logger
}

func NewLoreProcessor(st storage.Storage, llm services.LLMService, logger *slog.Logger) *LoreProcessor {
	return &LoreProcessor{
		storage: st,
		llm:     llm,
		merger:  lore.NewSafeMerger(logger),
		logger:  logger,
	}
}

// ProcessNarrativeSave folds one narrative log into the lore corpus.
// The returned MergeResult reports what was written, rejected, and
// skipped; a result with no updates means the corpus is unchanged.
func (p *LoreProcessor) ProcessNarrativeSave(ctx context.Context, saveStateID uuid.UUID, narrativeLog string) (*lore.MergeResult, error) {
	files, err := p.storage.ListLoreFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list lore files: %w", err)
	}
	if len(files) == 0 {
		p.logger.Warn("No lore files on disk, nothing to update")
		return &lore.MergeResult{}, nil
	}

	fileText := make(map[string]string, len(files))
	for name, data := range files {
		fileText[name] = string(data)
	}

	messages, err := prompts.BuildLoreUpdate(narrativeLog, fileText)
	if err != nil {
		return nil, err
	}

	raw, err := p.llm.GenerateLorePatch(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("lore patch request failed: %w", err)
	}

	var patch lore.Patch
	if err := genjson.Unmarshal(raw, &patch); err != nil {
		// No changes were made. The corpus must survive a bad response.
		p.logger.Warn("Lore patch unparseable, no changes were made",
			"error", err, "savestate_id", saveStateID)
		return &lore.MergeResult{}, nil
	}

	result := p.merger.Apply(files, &patch)

	for name, data := range result.Updated {
		if err := p.storage.WriteLoreFile(ctx, name, data); err != nil {
			return nil, fmt.Errorf("failed to write lore file %s: %w", name, err)
		}
	}

	p.logger.Info("Narrative save applied",
		"savestate_id", saveStateID,
		"updated", len(result.Updated),
		"rejected", len(result.Rejected),
		"skipped", len(result.SkippedFiles),
		"binding_errors", len(result.BindingErrors),
	)

	if patch.Summary != "" {
		p.recordSummary(ctx, saveStateID, patch.Summary)
	}

	return result, nil
}

// recordSummary appends the patch summary to the save's memory log so
// later scene prompts can reference what was saved.
func (p *LoreProcessor) recordSummary(ctx context.Context, saveStateID uuid.UUID, summary string) {
	if saveStateID == uuid.Nil {
		return
	}
	s, err := p.storage.LoadSaveState(ctx, saveStateID)
	if err != nil || s == nil {
		return
	}
	s.AppendMemory(summary)
	if err := p.storage.SaveSaveState(ctx, saveStateID, s); err != nil {
		p.logger.Warn("Failed to record narrative summary", "error", err)
	}
}
