package lore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	doc, err := Parse("act2.yaml", []byte(act2File))
	require.NoError(t, err)

	assert.Equal(t, []string{"title", "summary", "companions", "locations"}, doc.Keys())
	assert.Equal(t, "# Act 2 lore\n", string(doc.Prelude))
	assert.Equal(t, act2File, string(doc.Bytes()), "parse then serialize is byte-identical")
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("bad.yaml", []byte("key: [unclosed\n  nope"))
	assert.Error(t, err)
}

func TestDocument_Value(t *testing.T) {
	doc, err := Parse("act2.yaml", []byte(act2File))
	require.NoError(t, err)

	var title string
	require.NoError(t, doc.Value("title", &title))
	assert.Equal(t, "The Sunken Mines", title)

	var locations []string
	require.NoError(t, doc.Value("locations", &locations))
	assert.Equal(t, []string{"The Whispering Gate", "The Collapsed Shaft"}, locations)

	var nope string
	assert.Error(t, doc.Value("missing", &nope))
}

func TestDocument_CompanionNames(t *testing.T) {
	doc, err := Parse("act2.yaml", []byte(act2File))
	require.NoError(t, err)
	assert.Equal(t, []string{"grace", "thjolda"}, doc.CompanionNames())
}

func TestSetBinding_CompactMappingAndSequence(t *testing.T) {
	doc, err := Parse("act2.yaml", []byte(act2File))
	require.NoError(t, err)

	require.NoError(t, doc.SetBinding("vault_depth", "meters: 90"))
	require.NoError(t, doc.SetBinding("factions", "- The Gelwrights"))

	out := string(doc.Bytes())
	assert.Contains(t, out, "vault_depth:\n  meters: 90\n")
	assert.Contains(t, out, "factions:\n  - The Gelwrights\n")
	assert.Contains(t, out, "title: The Sunken Mines\n", "untouched bindings keep their source")

	_, err = Parse("act2.yaml", doc.Bytes())
	require.NoError(t, err, "edited document stays valid YAML")
}

const annotatedFile = `title: The Sunken Mines

# Confirmed by the quartermaster.
companions:
  - name: Thjolda
    status: Shield-sister

# End of act notes.
`

func TestSetBinding_KeepsCommentsBetweenBindings(t *testing.T) {
	doc, err := Parse("notes.yaml", []byte(annotatedFile))
	require.NoError(t, err)
	require.Equal(t, annotatedFile, string(doc.Bytes()))

	require.NoError(t, doc.SetBinding("title", "The Flooded Mines"))

	out := string(doc.Bytes())
	assert.Contains(t, out, "title: The Flooded Mines\n")
	assert.Contains(t, out, "\n# Confirmed by the quartermaster.\ncompanions:\n")
	assert.Contains(t, out, "# End of act notes.\n")
}
