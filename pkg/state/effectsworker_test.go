package state

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func TestEffectsWorker_StatClamp(t *testing.T) {
	tests := []struct {
		name     string
		start    map[string]int
		deltas   []map[string]StatDelta
		expected map[string]int
	}{
		{
			name:  "overflow clamps to cap",
			start: map[string]int{"Strength": 48},
			deltas: []map[string]StatDelta{
				{"Strength": 10},
			},
			expected: map[string]int{"Strength": 50},
		},
		{
			name:  "underflow clamps to zero",
			start: map[string]int{"Charisma": 2},
			deltas: []map[string]StatDelta{
				{"Charisma": -5},
			},
			expected: map[string]int{"Charisma": 0},
		},
		{
			name:  "untouched stats are clamped too",
			start: map[string]int{"Lore": 70, "Focus": 3},
			deltas: []map[string]StatDelta{
				{"Focus": 1},
			},
			expected: map[string]int{"Lore": 50, "Focus": 4},
		},
		{
			name:  "unknown stat names are created",
			start: map[string]int{},
			deltas: []map[string]StatDelta{
				{"Gelcraft": 3},
			},
			expected: map[string]int{"Gelcraft": 3},
		},
		{
			name:  "repeated applications stay within bounds",
			start: map[string]int{"Speed": 10},
			deltas: []map[string]StatDelta{
				{"Speed": 30},
				{"Speed": 30},
				{"Speed": -200},
			},
			expected: map[string]int{"Speed": 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSaveState()
			s.Stats = tt.start
			w := NewEffectsWorker(s, testLogger())
			for _, d := range tt.deltas {
				w.Apply(&Effects{Stats: d})
			}
			for k, v := range tt.expected {
				assert.Equal(t, v, s.Stats[k], "stat %s", k)
			}
			for k, v := range s.Stats {
				assert.GreaterOrEqual(t, v, 0, "stat %s below floor", k)
				assert.LessOrEqual(t, v, StatCap, "stat %s above cap", k)
			}
		})
	}
}

func TestEffectsWorker_FlagsAndRelationships(t *testing.T) {
	s := NewSaveState()
	w := NewEffectsWorker(s, testLogger())

	w.Apply(&Effects{
		Flags:         map[string]any{"seen_gate": true, "visits": 1},
		Relationships: map[string]StatDelta{"Thjolda": 2},
	})
	w.Apply(&Effects{
		Flags:         map[string]any{"visits": 2},
		Relationships: map[string]StatDelta{"Thjolda": -5},
	})

	assert.Equal(t, true, s.Flags["seen_gate"])
	assert.Equal(t, 2, s.Flags["visits"])
	// Relationships have no floor.
	assert.Equal(t, -3, s.Relationships["Thjolda"])
}

func TestEffectsWorker_Traits(t *testing.T) {
	s := NewSaveState()
	w := NewEffectsWorker(s, testLogger())

	w.Apply(&Effects{TraitsAdd: []Trait{
		{Name: "Frozen Moment", Description: "Stop time for a breath."},
	}})
	w.Apply(&Effects{TraitsAdd: []Trait{
		{Name: "Frozen Moment", Description: "A different description."},
	}})
	assert.Len(t, s.Traits.Active, 1)
	assert.Equal(t, "Stop time for a breath.", s.Traits.Active[0].Description)

	w.Apply(&Effects{TraitsRemove: []Trait{{Name: "Frozen Moment"}}})
	assert.Empty(t, s.Traits.Active)

	// Removing an absent trait is fine.
	w.Apply(&Effects{TraitsRemove: []Trait{{Name: "Never Had It"}}})
	assert.Empty(t, s.Traits.Active)
}

func TestEffectsWorker_TraitBuckets(t *testing.T) {
	s := NewSaveState()
	w := NewEffectsWorker(s, testLogger())

	w.Apply(&Effects{TraitsAdd: []Trait{
		{Name: "Frozen Moment"},
		{Name: "Gel Resonance", Bucket: "echoform"},
		{Name: "Twinned Pulse", Bucket: "hybrid_fusion"},
	}})
	assert.Len(t, s.Traits.Active, 1)
	assert.Len(t, s.Traits.Echoform, 1)
	assert.Len(t, s.Traits.HybridFusion, 1)

	// Dedup is per bucket, so the same name may live in two buckets.
	w.Apply(&Effects{TraitsAdd: []Trait{
		{Name: "Gel Resonance", Bucket: "echoform"},
		{Name: "Gel Resonance"},
	}})
	assert.Len(t, s.Traits.Echoform, 1)
	assert.Len(t, s.Traits.Active, 2)

	// Removal targets the named bucket and leaves the rest alone.
	w.Apply(&Effects{TraitsRemove: []Trait{
		{Name: "Gel Resonance", Bucket: "echoform"},
	}})
	assert.Empty(t, s.Traits.Echoform)
	assert.Len(t, s.Traits.Active, 2)

	// Unrecognized bucket names land in active.
	w.Apply(&Effects{TraitsAdd: []Trait{{Name: "Stray Spark", Bucket: "mystery"}}})
	assert.Len(t, s.Traits.Active, 3)
	assert.Len(t, s.Traits.HybridFusion, 1)
}

func TestEffectsWorker_Inventory(t *testing.T) {
	s := NewSaveState()
	w := NewEffectsWorker(s, testLogger())

	w.Apply(&Effects{
		Gold:         10,
		KeyItemsAdd:  []string{"Makeshift Charger", "Makeshift Charger"},
		ArtifactsAdd: []string{"Ashcore Verdict"},
		Equip:        map[string]string{"weapon": "Gel Blade"},
	})
	assert.Equal(t, 10, s.Inventory.Gold)
	assert.Equal(t, []string{"Makeshift Charger"}, s.Inventory.KeyItems)
	assert.Equal(t, "Gel Blade", s.Inventory.Equipment["weapon"])

	w.Apply(&Effects{
		Gold:           -25,
		KeyItemsRemove: []string{"Makeshift Charger"},
		Unequip:        []string{"weapon"},
	})
	assert.Equal(t, 0, s.Inventory.Gold, "gold never goes negative")
	assert.Empty(t, s.Inventory.KeyItems)
	_, equipped := s.Inventory.Equipment["weapon"]
	assert.False(t, equipped)
}

func TestEffectsWorker_CompanionMerge(t *testing.T) {
	s := NewSaveState()
	s.Companions = []Companion{
		{Name: "G.R.A.C.E.", Sync: "50%"},
	}
	w := NewEffectsWorker(s, testLogger())

	w.Apply(&Effects{CompanionsAdd: []Companion{
		{Name: "Grace", Status: "Online"},
	}})

	assert.Len(t, s.Companions, 1, "normalized names must merge, not duplicate")
	got := s.Companions[0]
	assert.Equal(t, "G.R.A.C.E.", got.Name, "canonical display name preserved")
	assert.Equal(t, "50%", got.Sync, "populated field not clobbered")
	assert.Equal(t, "Online", got.Status, "unset field filled in")
}

func TestEffectsWorker_CompanionAddRemove(t *testing.T) {
	s := NewSaveState()
	w := NewEffectsWorker(s, testLogger())

	w.Apply(&Effects{CompanionsAdd: []Companion{
		{Name: "Thjolda"},
		{Name: "Caelik", Status: "Bonded"},
	}})
	assert.Len(t, s.Companions, 2)
	assert.Equal(t, "Ally", s.Companions[0].Status, "default status for bare adds")

	w.Apply(&Effects{CompanionsRemove: []Companion{{Name: "thjolda"}}})
	assert.Len(t, s.Companions, 1)
	assert.Equal(t, "Caelik", s.Companions[0].Name)
}

func TestEffectsWorker_EmptyEffects(t *testing.T) {
	s := NewSaveState()
	before := len(s.Inventory.TraitTokens)
	w := NewEffectsWorker(s, testLogger())
	w.Apply(&Effects{})
	w.Apply(&Effects{})
	// Level rewards still run, but only ever grant once per title.
	assert.LessOrEqual(t, len(s.Inventory.TraitTokens), before+1)
}
