package lore

import (
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const act2File = `# Act 2 lore
title: The Sunken Mines
summary: >
  The party descends beneath the glacier in search of the
  second vault key.
companions:
  - name: G.R.A.C.E.
    status: Reactivated
  - name: Thjolda
    status: Shield-sister
locations:
  - The Whispering Gate
  - The Collapsed Shaft
`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

func corpus() map[string][]byte {
	return map[string][]byte{
		"act2.yaml": []byte(act2File),
	}
}

func TestApply_ScopedBindingPreservesOtherBindings(t *testing.T) {
	m := NewSafeMerger(testLogger())
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Bindings: map[string]string{
			"locations": "- The Whispering Gate\n- The Collapsed Shaft\n- The Gel Reservoir",
		}},
	}}

	r := m.Apply(corpus(), patch)
	require.True(t, r.Changed())
	out := string(r.Updated["act2.yaml"])

	// The patched binding changed.
	assert.Contains(t, out, "The Gel Reservoir")

	// Every other binding is byte-identical, formatting included.
	for _, untouched := range []string{
		"# Act 2 lore\n",
		"title: The Sunken Mines\n",
		"summary: >\n  The party descends beneath the glacier in search of the\n  second vault key.\n",
		"companions:\n  - name: G.R.A.C.E.\n    status: Reactivated\n  - name: Thjolda\n    status: Shield-sister\n",
	} {
		assert.Contains(t, out, untouched)
	}
}

func TestApply_ScopedBindingAppendsNew(t *testing.T) {
	m := NewSafeMerger(testLogger())
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Bindings: map[string]string{
			"factions": "- The Gelwrights",
		}},
	}}

	r := m.Apply(corpus(), patch)
	require.True(t, r.Changed())
	out := string(r.Updated["act2.yaml"])
	assert.True(t, strings.HasPrefix(out, "# Act 2 lore\n"), "existing content stays in place")
	assert.Contains(t, out, "factions:\n  - The Gelwrights\n")
}

func TestApply_BadBindingFailsAloneOthersProceed(t *testing.T) {
	m := NewSafeMerger(testLogger())
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Bindings: map[string]string{
			"title":     "The Flooded Mines",
			"locations": "[unclosed, flow, sequence",
		}},
	}}

	r := m.Apply(corpus(), patch)
	require.True(t, r.Changed())
	out := string(r.Updated["act2.yaml"])
	assert.Contains(t, out, "title: The Flooded Mines\n")
	assert.Contains(t, out, "The Collapsed Shaft", "failed binding leaves the original value")
	assert.Contains(t, r.BindingErrors, "act2.yaml#locations")
}

func TestApply_WholeFileReplacement(t *testing.T) {
	m := NewSafeMerger(testLogger())
	replacement := `title: The Sunken Mines
summary: Rewritten after the flood.
companions:
  - name: Grace
    status: Online
  - name: Thjolda
    status: Shield-sister
locations:
  - The Whispering Gate
`
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Replace: replacement},
	}}

	r := m.Apply(corpus(), patch)
	require.True(t, r.Changed())
	assert.Empty(t, r.Rejected)
	// "Grace" matches "G.R.A.C.E." by normalized name, so no
	// companion counts as deleted.
	assert.Contains(t, string(r.Updated["act2.yaml"]), "Rewritten after the flood.")
}

func TestApply_CompanionDeletionRejectsFile(t *testing.T) {
	m := NewSafeMerger(testLogger())
	replacement := `title: The Sunken Mines
summary: Thjolda has been quietly erased.
companions:
  - name: G.R.A.C.E.
    status: Reactivated
locations:
  - The Whispering Gate
`
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Replace: replacement},
	}}

	r := m.Apply(corpus(), patch)
	assert.False(t, r.Changed(), "rejected file must not be written")
	require.Contains(t, r.Rejected, "act2.yaml")
	assert.Contains(t, r.Rejected["act2.yaml"], "thjolda")
}

func TestApply_DroppedTopLevelBindingRejectsFile(t *testing.T) {
	m := NewSafeMerger(testLogger())
	replacement := `title: The Sunken Mines
companions:
  - name: G.R.A.C.E.
  - name: Thjolda
locations:
  - The Whispering Gate
`
	// summary is missing entirely.
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Replace: replacement},
	}}

	r := m.Apply(corpus(), patch)
	assert.False(t, r.Changed())
	require.Contains(t, r.Rejected, "act2.yaml")
	assert.Contains(t, r.Rejected["act2.yaml"], "summary")
}

func TestApply_UnknownFileIsDropped(t *testing.T) {
	m := NewSafeMerger(testLogger())
	patch := &Patch{Files: map[string]FilePatch{
		"act9.yaml":            {Replace: "title: Imaginary act\n"},
		"../../etc/passwd.yml": {Replace: "root: owned\n"},
	}}

	r := m.Apply(corpus(), patch)
	assert.False(t, r.Changed())
	assert.ElementsMatch(t, []string{"act9.yaml", "../../etc/passwd.yml"}, r.SkippedFiles)
}

func TestApply_UnparseableReplacementRejected(t *testing.T) {
	m := NewSafeMerger(testLogger())
	patch := &Patch{Files: map[string]FilePatch{
		"act2.yaml": {Replace: "title: [unclosed\n  companions oops"},
	}}

	r := m.Apply(corpus(), patch)
	assert.False(t, r.Changed())
	assert.Contains(t, r.Rejected, "act2.yaml")
}
