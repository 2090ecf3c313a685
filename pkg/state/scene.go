package state

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// SceneChoiceCount is the fixed number of choices every scene presents.
const SceneChoiceCount = 4

// Choice is one option the player can take from a scene.
type Choice struct {
	ID         string   `json:"id" yaml:"id"`
	Label      string   `json:"label" yaml:"label"`
	Effects    *Effects `json:"effects,omitempty" yaml:"effects,omitempty"`
	Next       string   `json:"next,omitempty" yaml:"next,omitempty"`
	Repeatable bool     `json:"repeatable,omitempty" yaml:"repeatable,omitempty"`
}

// Scene is one beat of playable narrative.
type Scene struct {
	ID      string   `json:"id" yaml:"id,omitempty"`
	Title   string   `json:"title" yaml:"title"`
	Text    string   `json:"text" yaml:"text"`
	Choices []Choice `json:"choices" yaml:"choices,omitempty"`
	Summary string   `json:"summary,omitempty" yaml:"summary,omitempty"`
}

var titleCaser = cases.Title(language.English)

// Slug reduces text to a snake_case identifier fragment, at most 24
// characters.
func Slug(text string) string {
	var b strings.Builder
	lastUnderscore := true
	for _, r := range strings.ToLower(text) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	slug := strings.Trim(b.String(), "_")
	if len(slug) > 24 {
		slug = strings.Trim(slug[:24], "_")
	}
	return slug
}

// ActPrefix is the namespace generated scene ids must carry, derived
// from the current act. The prologue keeps its own namespace.
func ActPrefix(pos Position) string {
	act := strings.ReplaceAll(pos.Act, "_", "")
	if act == "" || strings.HasPrefix(pos.Scene, "prologue_") {
		return "prologue_"
	}
	return act + "_"
}

// NormalizeScene forces a model-produced scene into the playable shape:
// a namespaced non-empty id, a title, and exactly SceneChoiceCount
// choices. When generated is true, succession is decided here, so any
// "next" hints on choices are stripped. The save state's scene counter
// advances when an id has to be synthesized.
func NormalizeScene(s *SaveState, sc *Scene, generated bool) {
	prefix := ActPrefix(s.Position)

	if sc.ID == "" {
		slug := Slug(sc.Title)
		if slug == "" {
			slug = "scene"
		}
		s.SceneCounter++
		sc.ID = fmt.Sprintf("%s%s_%d", prefix, slug, s.SceneCounter)
	} else if !strings.HasPrefix(sc.ID, prefix) && !strings.HasPrefix(sc.ID, "prologue_") {
		sc.ID = prefix + sc.ID
	}

	if sc.Title == "" {
		sc.Title = titleCaser.String(strings.ReplaceAll(sc.ID, "_", " "))
	}

	for i := range sc.Choices {
		c := &sc.Choices[i]
		if c.Label == "" {
			c.Label = "Continue"
		}
		if c.ID == "" {
			c.ID = Slug(c.Label)
		}
		if generated {
			c.Next = ""
		}
	}
	for len(sc.Choices) < SceneChoiceCount {
		n := len(sc.Choices) + 1
		sc.Choices = append(sc.Choices, Choice{
			ID:    fmt.Sprintf("improvise_%d", n),
			Label: "Improvise",
		})
	}
	if len(sc.Choices) > SceneChoiceCount {
		sc.Choices = sc.Choices[:SceneChoiceCount]
	}
}

// FallbackScene is the fixed scene served when generation fails. The
// id derives from the current position only, so repeated failures at
// the same position produce the same scene.
func FallbackScene(s *SaveState) *Scene {
	base := s.Position.Scene
	if base == "" {
		base = "start"
	}
	prefix := ActPrefix(s.Position)
	if !strings.HasPrefix(base, prefix) && !strings.HasPrefix(base, "prologue_") {
		base = prefix + base
	}
	sc := &Scene{
		ID:    base + "_auto",
		Title: "A Fork in the Road",
		Text: "You steady your breath and take stock. " +
			"Paths stretch forward; each promises risk and growth.",
		Choices: []Choice{
			{ID: "advance_cautiously", Label: "Advance cautiously",
				Effects: &Effects{Stats: map[string]StatDelta{"Insight": 1}}},
			{ID: "push_yourself", Label: "Push yourself physically",
				Effects: &Effects{Stats: map[string]StatDelta{"Strength": 1, "Endurance": 1}}},
			{ID: "survey_the_area", Label: "Survey the area",
				Effects: &Effects{Stats: map[string]StatDelta{"Focus": 1}}},
			{ID: "rest_and_recover", Label: "Rest and recover",
				Effects: &Effects{Stats: map[string]StatDelta{"Resolve": 1}}},
		},
	}
	return sc
}
