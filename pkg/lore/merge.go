package lore

import (
	"fmt"
	"log/slog"
	"sort"
)

// SafeMerger applies a Patch against the current lore corpus without
// ever letting a model edit delete what it should not. Whole-file
// replacements are invariant-checked; scoped binding patches touch only
// the bindings they name.
type SafeMerger struct {
	logger *slog.Logger
}

func NewSafeMerger(logger *slog.Logger) *SafeMerger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SafeMerger{logger: logger}
}

// MergeResult reports what a patch application did. Updated holds the
// new file contents to persist. Rejected maps a file to the invariant
// it violated; rejected files must not be written. SkippedFiles lists
// proposed names that are not currently-known lore files. BindingErrors
// maps "file#binding" to the reason that one binding was dropped while
// the rest of its file proceeded.
type MergeResult struct {
	Updated       map[string][]byte
	Rejected      map[string]string
	SkippedFiles  []string
	BindingErrors map[string]string
}

// Changed reports whether any file content was produced.
func (r *MergeResult) Changed() bool {
	return len(r.Updated) > 0
}

// Apply runs the patch against the current corpus. The current map is
// the allow-list: file names outside it are dropped, never created.
// Nothing is written to disk here; callers persist r.Updated only.
func (m *SafeMerger) Apply(current map[string][]byte, p *Patch) *MergeResult {
	r := &MergeResult{
		Updated:       make(map[string][]byte),
		Rejected:      make(map[string]string),
		BindingErrors: make(map[string]string),
	}
	if p.IsEmpty() {
		return r
	}

	names := make([]string, 0, len(p.Files))
	for name := range p.Files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fp := p.Files[name]
		existing, known := current[name]
		if !known {
			m.logger.Warn("patch names unknown lore file, dropping", "file", name)
			r.SkippedFiles = append(r.SkippedFiles, name)
			continue
		}

		switch {
		case fp.Replace != "":
			out, err := m.replaceFile(name, existing, fp.Replace)
			if err != nil {
				m.logger.Warn("whole-file patch rejected", "file", name, "reason", err)
				r.Rejected[name] = err.Error()
				continue
			}
			r.Updated[name] = out
		case len(fp.Bindings) > 0:
			out, changed := m.patchBindings(name, existing, fp.Bindings, r)
			if changed {
				r.Updated[name] = out
			}
		}
	}
	return r
}

// replaceFile validates a complete replacement text against the file it
// replaces. Any violation rejects the whole file.
func (m *SafeMerger) replaceFile(name string, oldData []byte, newText string) ([]byte, error) {
	oldDoc, err := Parse(name, oldData)
	if err != nil {
		return nil, fmt.Errorf("existing file unreadable: %w", err)
	}
	newDoc, err := Parse(name, []byte(newText))
	if err != nil {
		return nil, err
	}

	for _, key := range oldDoc.Keys() {
		if !newDoc.HasKey(key) {
			return nil, fmt.Errorf("top-level binding %q would be deleted", key)
		}
	}

	oldNames := oldDoc.CompanionNames()
	newNames := newDoc.CompanionNames()
	have := make(map[string]bool, len(newNames))
	for _, n := range newNames {
		have[n] = true
	}
	for _, n := range oldNames {
		if !have[n] {
			return nil, fmt.Errorf("companion %q would be deleted", n)
		}
	}

	return newDoc.Bytes(), nil
}

// patchBindings replaces named bindings one at a time. A binding whose
// value fails to parse is reported and skipped; the others proceed.
func (m *SafeMerger) patchBindings(name string, oldData []byte, bindings map[string]string, r *MergeResult) ([]byte, bool) {
	doc, err := Parse(name, oldData)
	if err != nil {
		r.Rejected[name] = fmt.Sprintf("existing file unreadable: %v", err)
		return nil, false
	}

	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	changed := false
	for _, key := range keys {
		if err := doc.SetBinding(key, bindings[key]); err != nil {
			m.logger.Warn("binding patch rejected", "file", name, "binding", key, "reason", err)
			r.BindingErrors[name+"#"+key] = err.Error()
			continue
		}
		changed = true
	}
	if !changed {
		return nil, false
	}
	return doc.Bytes(), true
}
