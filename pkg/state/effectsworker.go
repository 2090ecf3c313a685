package state

import (
	"log/slog"
	"strings"
)

// StatCap is the inclusive upper bound for every stat.
const StatCap = 50

// EffectsWorker applies an Effects change set to a SaveState.
// Application is total: malformed or partially-missing effects apply
// whatever is well-formed and skip the rest. The same effects applied
// to the same state always produce the same result.
type EffectsWorker struct {
	s      *SaveState
	logger *slog.Logger
}

func NewEffectsWorker(s *SaveState, logger *slog.Logger) *EffectsWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &EffectsWorker{s: s, logger: logger}
}

// Apply mutates the save state in the fixed order: stats, flags,
// relationships, traits, inventory, companions, then level rewards.
func (w *EffectsWorker) Apply(fx *Effects) {
	if fx.IsEmpty() {
		ApplyLevelRewards(w.s)
		return
	}
	w.s.EnsureMaps()

	for k, d := range fx.Stats {
		w.s.Stats[k] += int(d)
	}
	capStats(w.s.Stats)

	for k, v := range fx.Flags {
		w.s.Flags[k] = v
	}

	// Relationships carry no cap; grudges go as deep as they go.
	for k, d := range fx.Relationships {
		w.s.Relationships[k] += int(d)
	}

	for _, t := range fx.TraitsAdd {
		w.addTrait(t)
	}
	for _, t := range fx.TraitsRemove {
		w.removeTrait(t)
	}

	w.applyInventory(fx)
	w.applyCompanions(fx)

	ApplyLevelRewards(w.s)
}

func capStats(stats map[string]int) {
	for k, v := range stats {
		if v < 0 {
			stats[k] = 0
		} else if v > StatCap {
			stats[k] = StatCap
		}
	}
}

// traitBucket resolves a bucket name to its trait list. Empty and
// unrecognized names land in the active bucket.
func (w *EffectsWorker) traitBucket(name string) *[]Trait {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "echoform":
		return &w.s.Traits.Echoform
	case "hybrid_fusion", "hybridfusion":
		return &w.s.Traits.HybridFusion
	default:
		return &w.s.Traits.Active
	}
}

// addTrait appends to the trait's bucket, deduplicating by name within
// that bucket. A trait whose name already exists there is left
// untouched.
func (w *EffectsWorker) addTrait(t Trait) {
	if t.Name == "" {
		t.Name = "Unnamed Trait"
	}
	bucket := w.traitBucket(t.Bucket)
	for _, have := range *bucket {
		if have.Name == t.Name {
			return
		}
	}
	*bucket = append(*bucket, t)
	w.logger.Debug("trait added", "trait", t.Name, "bucket", t.Bucket)
}

// removeTrait drops the named trait from its bucket, the active bucket
// when the record names none. Removing an absent trait is a no-op.
func (w *EffectsWorker) removeTrait(t Trait) {
	bucket := w.traitBucket(t.Bucket)
	kept := (*bucket)[:0]
	for _, have := range *bucket {
		if have.Name != t.Name {
			kept = append(kept, have)
		}
	}
	*bucket = kept
}

func (w *EffectsWorker) applyInventory(fx *Effects) {
	inv := &w.s.Inventory

	inv.Gold += int(fx.Gold)
	if inv.Gold < 0 {
		inv.Gold = 0
	}

	for _, item := range fx.KeyItemsAdd {
		inv.KeyItems = appendUnique(inv.KeyItems, item)
	}
	for _, item := range fx.KeyItemsRemove {
		inv.KeyItems = removeAll(inv.KeyItems, item)
	}
	for _, item := range fx.ArtifactsAdd {
		inv.Artifacts = appendUnique(inv.Artifacts, item)
	}
	for _, item := range fx.ArtifactsRemove {
		inv.Artifacts = removeAll(inv.Artifacts, item)
	}

	for slot, item := range fx.Equip {
		inv.Equipment[slot] = item
	}
	for _, slot := range fx.Unequip {
		delete(inv.Equipment, slot)
	}
}

// applyCompanions merges additions by normalized name so the model
// re-introducing "Grace" does not duplicate "G.R.A.C.E.". On a merge
// the canonical entry keeps its display name and only its unset
// fields are filled in.
func (w *EffectsWorker) applyCompanions(fx *Effects) {
	for _, add := range fx.CompanionsAdd {
		if add.Name == "" {
			continue
		}
		merged := false
		want := NormalizeName(add.Name)
		for i := range w.s.Companions {
			if NormalizeName(w.s.Companions[i].Name) != want {
				continue
			}
			have := &w.s.Companions[i]
			if have.Status == "" {
				have.Status = add.Status
			}
			if have.Sync == "" {
				have.Sync = add.Sync
			}
			if have.Description == "" {
				have.Description = add.Description
			}
			merged = true
			break
		}
		if !merged {
			if add.Status == "" {
				add.Status = "Ally"
			}
			w.s.Companions = append(w.s.Companions, add)
			w.logger.Debug("companion joined", "name", add.Name)
		}
	}

	for _, rem := range fx.CompanionsRemove {
		want := NormalizeName(rem.Name)
		kept := w.s.Companions[:0]
		for _, c := range w.s.Companions {
			if NormalizeName(c.Name) != want {
				kept = append(kept, c)
			}
		}
		w.s.Companions = kept
	}
}

func appendUnique(items []string, item string) []string {
	for _, have := range items {
		if have == item {
			return items
		}
	}
	return append(items, item)
}

func removeAll(items []string, item string) []string {
	kept := items[:0]
	for _, have := range items {
		if have != item {
			kept = append(kept, have)
		}
	}
	return kept
}
