package scenario

import (
	"sort"

	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// Triggers gate a beat until the playthrough satisfies them. An empty
// Triggers is always satisfied.
type Triggers struct {
	FlagsAll    []string       `yaml:"flags_all,omitempty" json:"flags_all,omitempty"`
	FlagsAny    []string       `yaml:"flags_any,omitempty" json:"flags_any,omitempty"`
	StatsMin    map[string]int `yaml:"stats_min,omitempty" json:"stats_min,omitempty"`
	TraitsAny   []string       `yaml:"traits_any,omitempty" json:"traits_any,omitempty"`
	LocationAny []string       `yaml:"location_any,omitempty" json:"location_any,omitempty"`
}

// Outcomes fire when a beat completes.
type Outcomes struct {
	SetFlags         map[string]any `yaml:"set_flags,omitempty" json:"set_flags,omitempty"`
	UnlockBeats      []string       `yaml:"unlock_beats,omitempty" json:"unlock_beats,omitempty"`
	SuggestSidehooks []string       `yaml:"suggest_sidehooks,omitempty" json:"suggest_sidehooks,omitempty"`
}

// Beat is one canonical story moment. Beats keep an open-world game on
// its backbone: generation roams freely, but the next pending beat is
// always surfaced to the model.
type Beat struct {
	ID           string   `yaml:"id" json:"id"`
	Title        string   `yaml:"title" json:"title"`
	Act          int      `yaml:"act" json:"act"`
	Chapter      int      `yaml:"chapter" json:"chapter"`
	Order        int      `yaml:"order" json:"order"`
	Triggers     Triggers `yaml:"triggers,omitempty" json:"triggers,omitempty"`
	ScenesWindow int      `yaml:"scenes_window,omitempty" json:"scenes_window,omitempty"`
	Outcomes     Outcomes `yaml:"outcomes,omitempty" json:"outcomes,omitempty"`
	Notes        string   `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// DoneFlag is the flag key that marks this beat complete.
func (b *Beat) DoneFlag() string {
	return "beat:" + b.ID
}

// Met reports whether the save state satisfies the beat's triggers.
func (t *Triggers) Met(s *state.SaveState, location string) bool {
	for _, f := range t.FlagsAll {
		if !flagSet(s.Flags, f) {
			return false
		}
	}
	if len(t.FlagsAny) > 0 {
		any := false
		for _, f := range t.FlagsAny {
			if flagSet(s.Flags, f) {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	if len(t.LocationAny) > 0 {
		found := false
		for _, loc := range t.LocationAny {
			if loc == location {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	for k, floor := range t.StatsMin {
		if s.Stats[k] < floor {
			return false
		}
	}
	if len(t.TraitsAny) > 0 {
		names := make(map[string]bool, len(s.Traits.Active))
		for _, tr := range s.Traits.Active {
			names[tr.Name] = true
		}
		any := false
		for _, want := range t.TraitsAny {
			if names[want] {
				any = true
				break
			}
		}
		if !any {
			return false
		}
	}
	return true
}

func flagSet(flags map[string]any, key string) bool {
	switch v := flags[key].(type) {
	case bool:
		return v
	case nil:
		return false
	default:
		return true
	}
}

// NextBeat selects the canonical beat the story should steer toward:
// the first pending beat in (act, chapter, order) whose triggers are
// met, or the first pending beat at all if none are triggerable yet.
func NextBeat(beats []Beat, s *state.SaveState, location string) *Beat {
	pending := make([]*Beat, 0, len(beats))
	for i := range beats {
		if !flagSet(s.Flags, beats[i].DoneFlag()) {
			pending = append(pending, &beats[i])
		}
	}
	if len(pending) == 0 {
		return nil
	}
	sort.SliceStable(pending, func(i, j int) bool {
		a, b := pending[i], pending[j]
		if a.Act != b.Act {
			return a.Act < b.Act
		}
		if a.Chapter != b.Chapter {
			return a.Chapter < b.Chapter
		}
		return a.Order < b.Order
	})
	for _, b := range pending {
		if b.Triggers.Met(s, location) {
			return b
		}
	}
	return pending[0]
}

// CompleteBeat marks a beat done and applies its outcome flags.
func CompleteBeat(s *state.SaveState, b *Beat) {
	s.EnsureMaps()
	s.Flags[b.DoneFlag()] = true
	for k, v := range b.Outcomes.SetFlags {
		s.Flags[k] = v
	}
}
