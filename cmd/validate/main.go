package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/lorekeeper/pkg/lore"
	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <story.yaml> [lore-dir]\n", os.Args[0])
		os.Exit(1)
	}

	validator := &StoryValidator{}

	if err := validator.validateStory(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Story file is valid!")

	if len(os.Args) > 2 {
		if err := validator.validateLoreDir(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Lore files are valid!")
	}
}

type StoryValidator struct {
	errors []string
}

func (v *StoryValidator) validateStory(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	if !strings.HasSuffix(baseName, ".yaml") && !strings.HasSuffix(baseName, ".yml") {
		return fmt.Errorf("story file must have a .yaml extension: %s", baseName)
	}

	story, err := scenario.LoadStory(filename)
	if err != nil {
		return err
	}

	v.errors = nil
	v.validateIDs(story)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *StoryValidator) validateIDs(story *scenario.Story) {
	v.validateIDFormat("opening_scene", story.OpeningScene)

	for sceneID, scene := range story.Scenes {
		v.validateIDFormat("scene ID", sceneID)
		v.validateScene(scene, sceneID)
	}

	for i := range story.Beats {
		b := &story.Beats[i]
		v.validateIDFormat("beat ID", b.ID)
		if b.Title == "" {
			v.addError(fmt.Sprintf("beat '%s' has no title", b.ID))
		}
	}
}

func (v *StoryValidator) validateScene(scene *state.Scene, sceneID string) {
	if scene.Text == "" {
		v.addError(fmt.Sprintf("scene '%s' has no text", sceneID))
	}
	if len(scene.Choices) > state.SceneChoiceCount {
		v.addError(fmt.Sprintf("scene '%s' has %d choices, maximum is %d",
			sceneID, len(scene.Choices), state.SceneChoiceCount))
	}
	for _, c := range scene.Choices {
		v.validateIDFormat(fmt.Sprintf("choice ID in scene %s", sceneID), c.ID)
		if c.Label == "" {
			v.addError(fmt.Sprintf("choice '%s' in scene '%s' has no label", c.ID, sceneID))
		}
	}
}

// validateLoreDir parses every lore module and verifies it round-trips
// byte for byte, since scoped patching depends on that.
func (v *StoryValidator) validateLoreDir(dir string) error {
	fmt.Printf("Validating lore in %s...\n", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read lore directory: %w", err)
	}

	v.errors = nil
	checked := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || (!strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml")) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			v.addError(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		doc, err := lore.Parse(name, data)
		if err != nil {
			v.addError(fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if string(doc.Bytes()) != string(data) {
			v.addError(fmt.Sprintf("%s: does not round-trip byte for byte", name))
		}
		if len(doc.Keys()) == 0 {
			v.addError(fmt.Sprintf("%s: no top-level bindings", name))
		}
		checked++
	}

	if checked == 0 {
		v.addError("no lore files found")
	}
	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", dir, strings.Join(v.errors, "\n"))
	}
	fmt.Printf("Checked %d lore files.\n", checked)
	return nil
}

func (v *StoryValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !validIDRegex.MatchString(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *StoryValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var validIDRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
