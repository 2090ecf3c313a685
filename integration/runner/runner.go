package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running lorekeeper API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
	Async             bool // Route turns through the queue and poll for completion
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	// If this is not a sequence, return it as-is
	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	// This is a sequence - load all referenced cases
	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		// Resolve path relative to casesDir
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite executes a complete test suite. Each suite plays through a
// fresh save state created via the API.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	saveStateID, err := r.createSaveState(ctx)
	if err != nil {
		result.Error = fmt.Errorf("failed to create savestate: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.SaveState = saveStateID

	// Execute each test step
	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, saveStateID, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			// Break only if error handling mode is "exit"
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			// Continue to next step if mode is "continue"
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// createSaveState creates a fresh playthrough via POST /v1/savestate
func (r *Runner) createSaveState(ctx context.Context) (uuid.UUID, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", r.BaseURL+"/v1/savestate", nil)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to create POST request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to create savestate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(resp.Body)
		return uuid.UUID{}, fmt.Errorf("create savestate returned %d: %s", resp.StatusCode, string(body))
	}

	var created state.SaveState
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return uuid.UUID{}, fmt.Errorf("failed to decode created savestate: %w", err)
	}
	return created.ID, nil
}

// resetSaveState resets the playthrough to defaults via the reset route
func (r *Runner) resetSaveState(ctx context.Context, saveStateID uuid.UUID) error {
	url := fmt.Sprintf("%s/v1/savestate/%s/reset", r.BaseURL, saveStateID)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader([]byte(`{"hard":true}`)))
	if err != nil {
		return fmt.Errorf("failed to create reset request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute reset request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reset request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// runStep executes a single test step and checks expectations.
// If step.ChoiceID is ResetSaveStateChoice, resets the playthrough.
// Will retry once on timeout errors without backoff.
func (r *Runner) runStep(ctx context.Context, saveStateID uuid.UUID, step TestStep) TestResult {
	// Try once, then retry on timeout
	for attempt := 1; attempt <= 2; attempt++ {
		result := r.executeStep(ctx, saveStateID, step)

		// If successful or not a timeout, return immediately
		if result.Success || result.Error == nil {
			return result
		}

		// Check if it's a timeout error
		isTimeout := strings.Contains(result.Error.Error(), "timeout waiting for savestate update")

		// If it's a timeout and this is the first attempt, retry
		if isTimeout && attempt == 1 {
			r.Logger("    Timeout detected, retrying step: %s", step.Name)
			continue
		}

		return result
	}

	return TestResult{StepName: step.Name, Error: fmt.Errorf("unexpected error in retry logic")}
}

// executeStep performs the actual step execution
func (r *Runner) executeStep(ctx context.Context, saveStateID uuid.UUID, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{
		StepName: step.Name,
	}

	// Check if this is a reset step
	if step.ChoiceID == ResetSaveStateChoice {
		if err := r.resetSaveState(ctx, saveStateID); err != nil {
			result.Error = fmt.Errorf("failed to reset savestate: %w", err)
			result.Duration = time.Since(start)
			return result
		}

		resetState, err := GetSaveState(ctx, r.Client, r.BaseURL, saveStateID)
		if err != nil {
			result.Error = fmt.Errorf("failed to get reset savestate: %w", err)
			result.Duration = time.Since(start)
			return result
		}
		if err := r.checkExpectations(step.Expectations, nil, resetState); err != nil {
			result.Error = fmt.Errorf("reset expectation failed: %w", err)
			result.Duration = time.Since(start)
			return result
		}

		result.Success = true
		result.IsReset = true
		result.Duration = time.Since(start)
		return result
	}

	var turnResp *chat.TurnResponse
	var err error
	if r.Async {
		turnResp, err = r.runAsyncTurn(ctx, saveStateID, step.ChoiceID)
	} else {
		turnResp, err = PostTurn(ctx, r.Client, r.BaseURL, saveStateID, step.ChoiceID)
	}
	if err != nil {
		result.Error = fmt.Errorf("failed to resolve turn: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	postState, err := GetSaveState(ctx, r.Client, r.BaseURL, saveStateID)
	if err != nil {
		result.Error = fmt.Errorf("failed to get savestate after turn: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	if err := r.checkExpectations(step.Expectations, turnResp, postState); err != nil {
		result.Error = fmt.Errorf("expectation failed: %w", err)
		result.Duration = time.Since(start)
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// runAsyncTurn routes the turn through the queue and polls until the
// worker has moved the save state, then reads the resulting scene.
func (r *Runner) runAsyncTurn(ctx context.Context, saveStateID uuid.UUID, choiceID string) (*chat.TurnResponse, error) {
	before, err := GetSaveState(ctx, r.Client, r.BaseURL, saveStateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get savestate before turn: %w", err)
	}

	if _, err := PostTurnAsync(ctx, r.Client, r.BaseURL, saveStateID, choiceID); err != nil {
		return nil, err
	}

	if _, err := PollForTurnCompletion(ctx, r.Client, r.BaseURL, saveStateID, before.UpdatedAt); err != nil {
		return nil, err
	}

	return GetCurrentScene(ctx, r.Client, r.BaseURL, saveStateID)
}

// checkExpectations validates the test expectations against the turn
// response and the save state after the turn
func (r *Runner) checkExpectations(exp Expectations, turnResp *chat.TurnResponse, postState *state.SaveState) error {
	if exp.SceneID != nil {
		if postState.Position.Scene != *exp.SceneID {
			return fmt.Errorf("expected scene %s, got %s", *exp.SceneID, postState.Position.Scene)
		}
	}

	if exp.SceneIDPrefix != nil {
		if !strings.HasPrefix(postState.Position.Scene, *exp.SceneIDPrefix) {
			return fmt.Errorf("expected scene id with prefix %s, got %s", *exp.SceneIDPrefix, postState.Position.Scene)
		}
	}

	if exp.Generated != nil {
		if turnResp == nil {
			return fmt.Errorf("generated expectation requires a turn response")
		}
		if turnResp.Generated != *exp.Generated {
			return fmt.Errorf("expected generated=%t, got %t", *exp.Generated, turnResp.Generated)
		}
	}

	if len(exp.TextContains) > 0 {
		if turnResp == nil || turnResp.Scene == nil {
			return fmt.Errorf("text expectation requires a scene in the turn response")
		}
		lowerText := strings.ToLower(turnResp.Scene.Text)
		for _, expectedText := range exp.TextContains {
			if !strings.Contains(lowerText, strings.ToLower(expectedText)) {
				return fmt.Errorf("expected scene text to contain '%s', but it didn't", expectedText)
			}
		}
	}

	if exp.ChoiceCount != nil {
		if turnResp == nil || turnResp.Scene == nil {
			return fmt.Errorf("choice count expectation requires a scene in the turn response")
		}
		if len(turnResp.Scene.Choices) != *exp.ChoiceCount {
			return fmt.Errorf("expected %d choices, got %d", *exp.ChoiceCount, len(turnResp.Scene.Choices))
		}
	}

	for stat, floor := range exp.StatsMin {
		if postState.Stats[stat] < floor {
			return fmt.Errorf("expected stat %s >= %d, got %d", stat, floor, postState.Stats[stat])
		}
	}

	for flag, want := range exp.Flags {
		actual, _ := postState.Flags[flag].(bool)
		if actual != want {
			return fmt.Errorf("expected flag %s=%t, got %v", flag, want, postState.Flags[flag])
		}
	}

	if exp.GoldMin != nil {
		if postState.Inventory.Gold < *exp.GoldMin {
			return fmt.Errorf("expected gold >= %d, got %d", *exp.GoldMin, postState.Inventory.Gold)
		}
	}

	if len(exp.CompanionNames) > 0 {
		present := make(map[string]bool, len(postState.Companions))
		for _, c := range postState.Companions {
			present[state.NormalizeName(c.Name)] = true
		}
		for _, want := range exp.CompanionNames {
			if !present[state.NormalizeName(want)] {
				return fmt.Errorf("expected companion '%s' to be present. Actual companions: %v", want, postState.Companions)
			}
		}
	}

	if exp.LevelTitle != nil {
		lvl := state.ComputeLevel(postState.Stats)
		if lvl.Title != *exp.LevelTitle {
			return fmt.Errorf("expected level title %s, got %s (total %d)", *exp.LevelTitle, lvl.Title, lvl.Total)
		}
	}

	return nil
}
