// Package prompts assembles the bounded LLM prompts for scene
// generation and narrative saves. Builders are fluent and stateless
// between Build calls.
package prompts

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// Builder constructs the message array for one scene generation call.
// Lore must arrive pre-trimmed: the builder bounds the prompt by
// construction, never by truncating mid-build.
type Builder struct {
	s            *state.SaveState
	loreSnippets map[string]string
	memoryTail   []string
	prevSummary  string
	beat         *scenario.Beat
}

// New creates a new prompt builder.
func New() *Builder {
	return &Builder{}
}

// WithSaveState sets the playthrough the scene is generated for.
func (b *Builder) WithSaveState(s *state.SaveState) *Builder {
	b.s = s
	return b
}

// WithLoreSnippets sets pre-trimmed lore text, keyed by source file.
func (b *Builder) WithLoreSnippets(snippets map[string]string) *Builder {
	b.loreSnippets = snippets
	return b
}

// WithMemoryTail sets the recent narration summaries, oldest first.
// Only the last MemoryTailLimit entries are used.
func (b *Builder) WithMemoryTail(tail []string) *Builder {
	b.memoryTail = tail
	return b
}

// WithPreviousScene sets the summary of the scene just resolved.
func (b *Builder) WithPreviousScene(summary string) *Builder {
	b.prevSummary = summary
	return b
}

// WithBeat sets the canonical beat the story should steer toward.
func (b *Builder) WithBeat(beat *scenario.Beat) *Builder {
	b.beat = beat
	return b
}

// Build constructs the final message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.s == nil {
		return nil, fmt.Errorf("savestate is required")
	}

	var sb strings.Builder
	writeSection(&sb, "position", mustJSON(b.s.Position))
	writeSection(&sb, "stats", mustJSON(b.s.Stats))
	writeSection(&sb, "flags", mustJSON(b.s.Flags))
	writeSection(&sb, "relationships", mustJSON(b.s.Relationships))
	writeSection(&sb, "traits", mustJSON(b.s.Traits))
	writeSection(&sb, "companions", mustJSON(b.s.Companions))

	if len(b.loreSnippets) > 0 {
		names := make([]string, 0, len(b.loreSnippets))
		for name := range b.loreSnippets {
			names = append(names, name)
		}
		sort.Strings(names)
		var lore strings.Builder
		for _, name := range names {
			if b.loreSnippets[name] == "" {
				continue
			}
			fmt.Fprintf(&lore, "--- %s ---\n%s\n\n", name, b.loreSnippets[name])
		}
		writeSection(&sb, "lore", strings.TrimSpace(lore.String()))
	}

	tail := b.memoryTail
	if len(tail) > MemoryTailLimit {
		tail = tail[len(tail)-MemoryTailLimit:]
	}
	if len(tail) > 0 {
		writeSection(&sb, "memory", strings.Join(tail, "\n"))
	}
	if b.prevSummary != "" {
		writeSection(&sb, "previous_scene", b.prevSummary)
	}
	if b.beat != nil {
		writeSection(&sb, "next_canonical_beat", fmt.Sprintf(
			"%s: %s (act %d, chapter %d). %s",
			b.beat.ID, b.beat.Title, b.beat.Act, b.beat.Chapter, b.beat.Notes))
	}

	sb.WriteString("Return a new scene that logically follows the position, lore, and the next canonical beat.")

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: SceneSystemPrompt},
		{Role: chat.ChatRoleUser, Content: sb.String()},
	}, nil
}

// BuildLoreUpdate constructs the message array for a narrative save:
// the log of what happened plus the full text of each current lore
// file, so the model can only reference files that really exist.
func BuildLoreUpdate(narrativeLog string, loreFiles map[string]string) ([]chat.ChatMessage, error) {
	if strings.TrimSpace(narrativeLog) == "" {
		return nil, fmt.Errorf("narrative log is required")
	}

	var sb strings.Builder
	writeSection(&sb, "narrative_log", narrativeLog)

	names := make([]string, 0, len(loreFiles))
	for name := range loreFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		writeSection(&sb, "file:"+name, loreFiles[name])
	}
	sb.WriteString("Fold the narrative log into the lore files shown above.")

	return []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: LoreUpdateSystemPrompt},
		{Role: chat.ChatRoleUser, Content: sb.String()},
	}, nil
}

func writeSection(sb *strings.Builder, tag, content string) {
	fmt.Fprintf(sb, "<%s>\n%s\n</%s>\n\n", tag, content, tag)
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
