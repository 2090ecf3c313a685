package state

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Position locates the player inside the story.
type Position struct {
	Act     string `json:"act"`
	Chapter string `json:"chapter"`
	Scene   string `json:"scene"`
}

// Trait is a named ability. Traits arrive from the model either as bare
// strings or as objects; UnmarshalJSON accepts both. Bucket names the
// progression bucket the trait belongs in ("active", "echoform" or
// "hybrid_fusion"); empty means active.
type Trait struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	Bucket      string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
}

func (t *Trait) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Name = s
		return nil
	}
	type alias Trait
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Trait(a)
	return nil
}

// Traits groups traits into their progression buckets.
type Traits struct {
	Active       []Trait `json:"active_traits"`
	Echoform     []Trait `json:"echoform_traits"`
	HybridFusion []Trait `json:"hybrid_fusion_traits"`
}

// TraitToken is a pending trait draft earned from leveling.
type TraitToken struct {
	Title string `json:"title"`
}

// Inventory holds the player's possessions.
type Inventory struct {
	Gold        int               `json:"gold"`
	KeyItems    []string          `json:"key_items"`
	Artifacts   []string          `json:"artifacts_relics"`
	Equipment   map[string]string `json:"equipment"`
	TraitTokens []TraitToken      `json:"trait_tokens_drafts"`
}

// Companion is a party member. Name is the canonical display name;
// identity comparisons use NormalizeName.
type Companion struct {
	Name        string `json:"name" yaml:"name"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	Sync        string `json:"sync,omitempty" yaml:"sync,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func (c *Companion) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Name = s
		c.Status = "Ally"
		return nil
	}
	type alias Companion
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*c = Companion(a)
	return nil
}

// StoryLogEntry records one resolved player choice.
type StoryLogEntry struct {
	SceneID   string    `json:"scene_id"`
	Title     string    `json:"title,omitempty"`
	Choice    string    `json:"choice"`
	Effects   *Effects  `json:"effects,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SaveState is the complete persisted state of a playthrough.
type SaveState struct {
	ID            uuid.UUID         `json:"id"`
	Position      Position          `json:"position"`
	Stats         map[string]int    `json:"stats"`
	Traits        Traits            `json:"traits"`
	Relationships map[string]int    `json:"relationships"`
	Flags         map[string]any    `json:"flags"`
	Inventory     Inventory         `json:"inventory"`
	Companions    []Companion       `json:"companions"`
	SceneCache    map[string]*Scene `json:"scene_cache"`
	SceneCounter  int               `json:"scene_counter"`
	StoryLog      []StoryLogEntry   `json:"story_log,omitempty"`
	MemoryLog     []string          `json:"memory_log,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// NormalizeName reduces a display name to its identity form:
// lowercased with punctuation and spaces stripped, so "G.R.A.C.E."
// and "Grace" compare equal.
func NormalizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// HasCompanion reports whether a companion with the same normalized
// name is already in the party.
func (s *SaveState) HasCompanion(name string) bool {
	want := NormalizeName(name)
	for _, c := range s.Companions {
		if NormalizeName(c.Name) == want {
			return true
		}
	}
	return false
}

// EnsureMaps initializes any nil containers so callers can write into
// the state without nil checks. Loaded legacy saves may lack fields
// added later.
func (s *SaveState) EnsureMaps() {
	if s.Stats == nil {
		s.Stats = make(map[string]int)
	}
	if s.Relationships == nil {
		s.Relationships = make(map[string]int)
	}
	if s.Flags == nil {
		s.Flags = make(map[string]any)
	}
	if s.Inventory.Equipment == nil {
		s.Inventory.Equipment = make(map[string]string)
	}
	if s.SceneCache == nil {
		s.SceneCache = make(map[string]*Scene)
	}
}

// AppendMemory records a narration summary, keeping only the most
// recent entries.
const memoryLogLimit = 20

func (s *SaveState) AppendMemory(summary string) {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return
	}
	s.MemoryLog = append(s.MemoryLog, summary)
	if len(s.MemoryLog) > memoryLogLimit {
		s.MemoryLog = s.MemoryLog[len(s.MemoryLog)-memoryLogLimit:]
	}
}

// RecentMemories returns up to n of the newest memory entries, oldest
// first.
func (s *SaveState) RecentMemories(n int) []string {
	if n <= 0 || len(s.MemoryLog) == 0 {
		return nil
	}
	if len(s.MemoryLog) < n {
		n = len(s.MemoryLog)
	}
	return s.MemoryLog[len(s.MemoryLog)-n:]
}
