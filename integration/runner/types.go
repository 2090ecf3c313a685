package runner

import (
	"time"

	"github.com/google/uuid"
)

// Special choice_id values that trigger non-turn actions
const (
	ResetSaveStateChoice = "RESET_SAVESTATE"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps,omitempty"` // Used for regular tests
	Cases []string   `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep defines a single turn and its expected outcomes.
// Use choice_id: "RESET_SAVESTATE" to reset the playthrough to defaults.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	ChoiceID     string       `json:"choice_id"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	// Scene the save state should be positioned at afterward
	SceneID       *string `json:"scene_id,omitempty"`
	SceneIDPrefix *string `json:"scene_id_prefix,omitempty"` // For generated scenes with counters in the id
	Generated     *bool   `json:"generated,omitempty"`       // Whether the scene came from the model

	// Scene content
	TextContains []string `json:"text_contains,omitempty"`
	ChoiceCount  *int     `json:"choice_count,omitempty"`

	// Save state properties
	StatsMin       map[string]int  `json:"stats_min,omitempty"`  // Stat floors after the turn
	Flags          map[string]bool `json:"flags,omitempty"`      // Boolean flags that must hold
	GoldMin        *int            `json:"gold_min,omitempty"`   // Minimum gold after the turn
	CompanionNames []string        `json:"companions,omitempty"` // Companions that must be present
	LevelTitle     *string         `json:"level_title,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	IsReset  bool
}

// TestRunResult contains the outcome of running a complete test suite
type TestRunResult struct {
	Job       TestJob
	SaveState uuid.UUID
	Results   []TestResult
	Duration  time.Duration
	Error     error
}

// TestJob pairs a suite with the name it should be reported under
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}
