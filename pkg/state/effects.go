package state

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StatDelta is an integer change that tolerates sloppy model output:
// numbers, numeric strings, and strings with a leading "+" all decode;
// anything else decodes to zero.
type StatDelta int

func (d *StatDelta) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*d = StatDelta(n)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*d = StatDelta(int(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "+"))
		if n, err := strconv.Atoi(s); err == nil {
			*d = StatDelta(n)
			return nil
		}
	}
	*d = 0
	return nil
}

// Effects is the declarative change set attached to a choice. Every
// field is optional; a zero Effects is a no-op. Application is handled
// by EffectsWorker and never fails.
type Effects struct {
	Stats            map[string]StatDelta `json:"stats,omitempty" yaml:"stats,omitempty"`
	Flags            map[string]any       `json:"flags,omitempty" yaml:"flags,omitempty"`
	Relationships    map[string]StatDelta `json:"relationships,omitempty" yaml:"relationships,omitempty"`
	TraitsAdd        []Trait              `json:"traits_add,omitempty" yaml:"traits_add,omitempty"`
	TraitsRemove     []Trait              `json:"traits_remove,omitempty" yaml:"traits_remove,omitempty"`
	Gold             StatDelta            `json:"gold,omitempty" yaml:"gold,omitempty"`
	KeyItemsAdd      []string             `json:"key_items_add,omitempty" yaml:"key_items_add,omitempty"`
	KeyItemsRemove   []string             `json:"key_items_remove,omitempty" yaml:"key_items_remove,omitempty"`
	ArtifactsAdd     []string             `json:"artifacts_add,omitempty" yaml:"artifacts_add,omitempty"`
	ArtifactsRemove  []string             `json:"artifacts_remove,omitempty" yaml:"artifacts_remove,omitempty"`
	Equip            map[string]string    `json:"equip,omitempty" yaml:"equip,omitempty"`
	Unequip          []string             `json:"unequip,omitempty" yaml:"unequip,omitempty"`
	CompanionsAdd    []Companion          `json:"companions_add,omitempty" yaml:"companions_add,omitempty"`
	CompanionsRemove []Companion          `json:"companions_remove,omitempty" yaml:"companions_remove,omitempty"`
}

// IsEmpty reports whether applying the effects would change nothing.
func (e *Effects) IsEmpty() bool {
	if e == nil {
		return true
	}
	return len(e.Stats) == 0 && len(e.Flags) == 0 && len(e.Relationships) == 0 &&
		len(e.TraitsAdd) == 0 && len(e.TraitsRemove) == 0 && e.Gold == 0 &&
		len(e.KeyItemsAdd) == 0 && len(e.KeyItemsRemove) == 0 &&
		len(e.ArtifactsAdd) == 0 && len(e.ArtifactsRemove) == 0 &&
		len(e.Equip) == 0 && len(e.Unequip) == 0 &&
		len(e.CompanionsAdd) == 0 && len(e.CompanionsRemove) == 0
}
