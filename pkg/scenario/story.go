// Package scenario holds the hand-authored story definition: the scene
// graph that carries the game when generation is off or fails, and the
// canonical beats that keep generated narrative on the story's spine.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// Story is one loadable game definition.
type Story struct {
	Name         string                  `yaml:"name" json:"name"`
	Description  string                  `yaml:"description,omitempty" json:"description,omitempty"`
	OpeningScene string                  `yaml:"opening_scene" json:"opening_scene"`
	Scenes       map[string]*state.Scene `yaml:"scenes" json:"scenes"`
	Beats        []Beat                  `yaml:"beats,omitempty" json:"beats,omitempty"`
	LoreFiles    []string                `yaml:"lore_files,omitempty" json:"lore_files,omitempty"`
}

// LoadStory reads and validates a story definition from a YAML file.
func LoadStory(path string) (*Story, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read story file: %w", err)
	}
	var st Story
	if err := yaml.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("failed to parse story file: %w", err)
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	// Scene maps omit the id inside each scene; backfill from the key.
	for id, sc := range st.Scenes {
		if sc.ID == "" {
			sc.ID = id
		}
	}
	return &st, nil
}

// Scene returns the hand-authored scene for an id, if one exists.
func (st *Story) Scene(id string) (*state.Scene, bool) {
	sc, ok := st.Scenes[id]
	return sc, ok
}

// Validate checks the story graph is playable: the opening scene
// exists, every choice successor resolves, and beat ids are unique.
func (st *Story) Validate() error {
	if st.Name == "" {
		return fmt.Errorf("story name is required")
	}
	if st.OpeningScene == "" {
		return fmt.Errorf("opening_scene is required")
	}
	if _, ok := st.Scenes[st.OpeningScene]; !ok {
		return fmt.Errorf("opening_scene %q has no scene definition", st.OpeningScene)
	}

	var problems []string
	for id, sc := range st.Scenes {
		if sc.ID != "" && sc.ID != id {
			problems = append(problems, fmt.Sprintf("scene %q declares mismatched id %q", id, sc.ID))
		}
		for _, c := range sc.Choices {
			if c.Next == "" {
				continue
			}
			if _, ok := st.Scenes[c.Next]; !ok {
				problems = append(problems,
					fmt.Sprintf("scene %q choice %q points to unknown scene %q", id, c.Label, c.Next))
			}
		}
	}

	seen := make(map[string]bool, len(st.Beats))
	for _, b := range st.Beats {
		if b.ID == "" {
			problems = append(problems, "beat with empty id")
			continue
		}
		if seen[b.ID] {
			problems = append(problems, fmt.Sprintf("duplicate beat id %q", b.ID))
		}
		seen[b.ID] = true
	}

	if len(problems) > 0 {
		return fmt.Errorf("story validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}
