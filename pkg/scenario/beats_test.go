package scenario

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/lorekeeper/pkg/state"
)

func testBeats() []Beat {
	return []Beat{
		{ID: "A0C1", Title: "Routine & Rejection", Act: 0, Chapter: 1, Order: 1},
		{ID: "A0C2", Title: "The Explosion", Act: 0, Chapter: 2, Order: 2},
		{ID: "A2C3", Title: "Sparks from the Cold", Act: 2, Chapter: 3, Order: 3,
			Triggers: Triggers{StatsMin: map[string]int{"Focus": 5}}},
		{ID: "A3C2", Title: "Descent Lines", Act: 3, Chapter: 2, Order: 2,
			Triggers: Triggers{LocationAny: []string{"Valley of Whispers"}}},
	}
}

func TestNextBeat_Order(t *testing.T) {
	s := state.NewSaveState()
	beats := testBeats()

	b := NextBeat(beats, s, "")
	require.NotNil(t, b)
	assert.Equal(t, "A0C1", b.ID, "earliest pending beat comes first")

	CompleteBeat(s, b)
	b = NextBeat(beats, s, "")
	require.NotNil(t, b)
	assert.Equal(t, "A0C2", b.ID)
}

func TestNextBeat_TriggersGate(t *testing.T) {
	s := state.NewSaveState()
	beats := testBeats()
	for i := range beats[:2] {
		CompleteBeat(s, &beats[i])
	}

	// Neither remaining beat is triggerable: fall back to the first
	// pending one.
	s.Stats["Focus"] = 1
	b := NextBeat(beats, s, "")
	require.NotNil(t, b)
	assert.Equal(t, "A2C3", b.ID)

	// Focus requirement met: the beat is now properly triggered.
	s.Stats["Focus"] = 5
	b = NextBeat(beats, s, "")
	require.NotNil(t, b)
	assert.Equal(t, "A2C3", b.ID)

	CompleteBeat(s, b)
	b = NextBeat(beats, s, "Valley of Whispers")
	require.NotNil(t, b)
	assert.Equal(t, "A3C2", b.ID)
}

func TestNextBeat_AllComplete(t *testing.T) {
	s := state.NewSaveState()
	beats := testBeats()
	for i := range beats {
		CompleteBeat(s, &beats[i])
	}
	assert.Nil(t, NextBeat(beats, s, ""))
}

func TestTriggers_Met(t *testing.T) {
	s := state.NewSaveState()
	s.Flags["prologue_done"] = true
	s.Stats["Focus"] = 7
	s.Traits.Active = []state.Trait{{Name: "Mnemonic Warden"}}

	tests := []struct {
		name     string
		triggers Triggers
		location string
		expected bool
	}{
		{name: "empty triggers always met", triggers: Triggers{}, expected: true},
		{
			name:     "flags_all met",
			triggers: Triggers{FlagsAll: []string{"prologue_done"}},
			expected: true,
		},
		{
			name:     "flags_all missing",
			triggers: Triggers{FlagsAll: []string{"prologue_done", "vault_open"}},
			expected: false,
		},
		{
			name:     "flags_any",
			triggers: Triggers{FlagsAny: []string{"vault_open", "prologue_done"}},
			expected: true,
		},
		{
			name:     "stats_min boundary",
			triggers: Triggers{StatsMin: map[string]int{"Focus": 7}},
			expected: true,
		},
		{
			name:     "stats_min unmet",
			triggers: Triggers{StatsMin: map[string]int{"Focus": 8}},
			expected: false,
		},
		{
			name:     "traits_any",
			triggers: Triggers{TraitsAny: []string{"Mnemonic Warden", "Coreborn"}},
			expected: true,
		},
		{
			name:     "traits_any unmet",
			triggers: Triggers{TraitsAny: []string{"Coreborn"}},
			expected: false,
		},
		{
			name:     "location_any",
			triggers: Triggers{LocationAny: []string{"Valley of Whispers"}},
			location: "Valley of Whispers",
			expected: true,
		},
		{
			name:     "location_any unmet",
			triggers: Triggers{LocationAny: []string{"Valley of Whispers"}},
			location: "Gæl Mines",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.triggers.Met(s, tt.location))
		})
	}
}

func TestCompleteBeat_Outcomes(t *testing.T) {
	s := state.NewSaveState()
	b := &Beat{
		ID: "A1C3",
		Outcomes: Outcomes{
			SetFlags: map[string]any{"prologue_done": true},
		},
	}
	CompleteBeat(s, b)
	assert.Equal(t, true, s.Flags["beat:A1C3"])
	assert.Equal(t, true, s.Flags["prologue_done"])
}
