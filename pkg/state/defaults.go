package state

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// StartingScene is where every new playthrough begins.
const StartingScene = "prologue_start"

// Defaults returns the baseline SaveState for a brand-new playthrough.
// Always a fresh value; callers may mutate the result freely.
func Defaults() *SaveState {
	return &SaveState{
		Position: Position{
			Act:     "act_1",
			Chapter: "chapter_0",
			Scene:   StartingScene,
		},
		Stats: map[string]int{
			"Strength":  1,
			"Speed":     1,
			"Dexterity": 1,
			"Insight":   1,
			"Focus":     1,
			"Charisma":  1,
			"Resolve":   1,
			"Spirit":    1,
			"Agility":   1,
			"Willpower": 1,
			"Lore":      1,
			"Defense":   1,
			"Endurance": 1,
		},
		Traits: Traits{
			Active:       []Trait{},
			Echoform:     []Trait{},
			HybridFusion: []Trait{},
		},
		Relationships: map[string]int{},
		Flags:         map[string]any{},
		Inventory: Inventory{
			Gold:        0,
			KeyItems:    []string{},
			Artifacts:   []string{},
			Equipment:   map[string]string{},
			TraitTokens: []TraitToken{},
		},
		Companions: []Companion{},
		SceneCache: map[string]*Scene{},
	}
}

// NewSaveState creates a defaulted playthrough with a fresh ID and
// timestamps.
func NewSaveState() *SaveState {
	s := Defaults()
	s.ID = uuid.New()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	return s
}

// FromJSON decodes a persisted record over a defaults-seeded state.
// Keys present in the record win; keys the record lacks keep their
// default values, so saves written by older revisions gain any fields
// added since. Map fields merge per key; slices and scalars are
// replaced outright. A record that fails to decode yields a fresh
// default state and ok=false, never an error.
func FromJSON(data []byte) (s *SaveState, ok bool) {
	s = Defaults()
	if err := json.Unmarshal(data, s); err != nil {
		return NewSaveState(), false
	}
	s.EnsureMaps()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return s, true
}
