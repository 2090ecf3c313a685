package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

func testConnection(client *http.Client, baseURL string) bool {
	resp, err := client.Get(baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func createSaveState(client *http.Client, baseURL string) (*state.SaveState, error) {
	resp, err := client.Post(baseURL+"/v1/savestate", "application/json", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusCreated {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to create savestate: %s", errorResp.Error)
	}

	var s state.SaveState
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to parse savestate response: %w", err)
	}
	return &s, nil
}

func getSaveState(client *http.Client, baseURL string, saveStateID uuid.UUID) (*state.SaveState, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/savestate/%s", baseURL, saveStateID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get savestate: %s", errorResp.Error)
	}

	var s state.SaveState
	if err := json.Unmarshal(body, &s); err != nil {
		return nil, fmt.Errorf("failed to parse savestate response: %w", err)
	}
	return &s, nil
}

// getCurrentScene reads the scene the save state is positioned at.
func getCurrentScene(client *http.Client, baseURL string, saveStateID uuid.UUID) (*state.Scene, error) {
	resp, err := client.Get(fmt.Sprintf("%s/v1/turn/%s", baseURL, saveStateID))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to get scene: %s", errorResp.Error)
	}

	var turnResp chat.TurnResponse
	if err := json.Unmarshal(body, &turnResp); err != nil {
		return nil, fmt.Errorf("failed to parse turn response: %w", err)
	}
	if turnResp.Scene == nil {
		return nil, fmt.Errorf("no scene in response")
	}
	return turnResp.Scene, nil
}

// postTurn resolves a choice and returns the scene the player now faces.
func postTurn(client *http.Client, baseURL string, saveStateID uuid.UUID, choiceID string) (*chat.TurnResponse, error) {
	jsonData, err := json.Marshal(chat.TurnRequest{
		SaveStateID: saveStateID,
		ChoiceID:    choiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/turn",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("failed to resolve turn: %s", errorResp.Error)
	}

	var turnResp chat.TurnResponse
	if err := json.Unmarshal(body, &turnResp); err != nil {
		return nil, fmt.Errorf("failed to parse turn response: %w", err)
	}
	return &turnResp, nil
}

// postNarrativeSave submits the visible narrative for a lore update.
func postNarrativeSave(client *http.Client, baseURL string, saveStateID uuid.UUID, narrative string) error {
	jsonData, err := json.Marshal(map[string]string{
		"savestate_id":  saveStateID.String(),
		"narrative_log": narrative,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(
		baseURL+"/v1/narrative-save",
		"application/json",
		bytes.NewBuffer(jsonData),
	)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("failed to save narrative: %s", errorResp.Error)
	}
	return nil
}
