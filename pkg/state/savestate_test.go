package state

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromJSON_BackfillsDefaults(t *testing.T) {
	// A record written before scene_counter and memory_log existed.
	legacy := `{
		"id": "4a1d70c2-24b1-4f6c-a6ae-61f0b0c0b9d1",
		"position": {"act": "act_2", "chapter": "chapter_3", "scene": "act2_mines_intro"},
		"stats": {"Strength": 12},
		"flags": {"seen_gate": true}
	}`

	s, ok := FromJSON([]byte(legacy))
	require.True(t, ok)

	assert.Equal(t, "4a1d70c2-24b1-4f6c-a6ae-61f0b0c0b9d1", s.ID.String())
	assert.Equal(t, "act2_mines_intro", s.Position.Scene, "existing fields untouched")
	assert.Equal(t, 12, s.Stats["Strength"], "existing fields untouched")
	assert.Equal(t, true, s.Flags["seen_gate"])
	assert.Equal(t, 0, s.SceneCounter, "missing fields backfilled from defaults")
	assert.NotNil(t, s.SceneCache)
	assert.NotNil(t, s.Relationships)
	assert.Equal(t, 1, s.Stats["Lore"], "default stats the record lacks are kept")
}

func TestFromJSON_CorruptRecord(t *testing.T) {
	s, ok := FromJSON([]byte("{not json at all"))
	assert.False(t, ok)
	require.NotNil(t, s)
	assert.Equal(t, StartingScene, s.Position.Scene, "corruption yields a fresh default state")
	assert.NotEqual(t, uuid.Nil, s.ID)
}

func TestTrait_FlexibleUnmarshal(t *testing.T) {
	var ts []Trait
	raw := `["Coreborn", {"name": "Echo Reflex", "status": "Active"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &ts))
	require.Len(t, ts, 2)
	assert.Equal(t, "Coreborn", ts[0].Name)
	assert.Equal(t, "Echo Reflex", ts[1].Name)
	assert.Equal(t, "Active", ts[1].Status)
}

func TestCompanion_FlexibleUnmarshal(t *testing.T) {
	var cs []Companion
	raw := `["Thjolda", {"name": "G.R.A.C.E.", "sync": "115%"}]`
	require.NoError(t, json.Unmarshal([]byte(raw), &cs))
	require.Len(t, cs, 2)
	assert.Equal(t, "Thjolda", cs[0].Name)
	assert.Equal(t, "Ally", cs[0].Status)
	assert.Equal(t, "115%", cs[1].Sync)
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"G.R.A.C.E.", "grace"},
		{"Grace", "grace"},
		{"  Thjolda ", "thjolda"},
		{"Echo-Touched One", "echotouchedone"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.out, NormalizeName(tt.in), tt.in)
	}
}

func TestMemoryLog(t *testing.T) {
	s := NewSaveState()
	for i := 0; i < 25; i++ {
		s.AppendMemory("entry")
	}
	assert.Len(t, s.MemoryLog, memoryLogLimit)

	s.MemoryLog = []string{"a", "b", "c"}
	assert.Equal(t, []string{"b", "c"}, s.RecentMemories(2))
	assert.Equal(t, []string{"a", "b", "c"}, s.RecentMemories(10))
	assert.Nil(t, s.RecentMemories(0))

	s.AppendMemory("   ")
	assert.Len(t, s.MemoryLog, 3, "blank summaries are dropped")
}
