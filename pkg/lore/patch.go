package lore

// FilePatch is the proposed change to one lore file. Exactly one mode
// should be set: Replace carries the complete new file text, Bindings
// carries new YAML literals for named top-level bindings.
type FilePatch struct {
	Replace  string            `json:"replace,omitempty"`
	Bindings map[string]string `json:"bindings,omitempty"`
}

// Patch is a model-proposed lore update, keyed by file name.
type Patch struct {
	Files   map[string]FilePatch `json:"files"`
	Summary string               `json:"summary,omitempty"`
}

// IsEmpty reports whether the patch proposes no changes.
func (p *Patch) IsEmpty() bool {
	return p == nil || len(p.Files) == 0
}
