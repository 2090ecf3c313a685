package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/pkg/chat"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

const (
	// PollInterval is how often to check savestate for updates
	PollInterval = 1 * time.Second
	// TurnTimeout is max time to wait for a queued turn to be processed
	TurnTimeout = 30 * time.Second
)

// AsyncTurnResponse is the response from the queued turn endpoint
type AsyncTurnResponse struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
}

// GetSaveState retrieves the current savestate
func GetSaveState(ctx context.Context, client *http.Client, baseURL string, saveStateID uuid.UUID) (*state.SaveState, error) {
	url := fmt.Sprintf("%s/v1/savestate/%s", baseURL, saveStateID.String())
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create savestate request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send savestate request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("savestate endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var s state.SaveState
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to decode savestate: %w", err)
	}
	return &s, nil
}

// GetCurrentScene reads the scene the save state is positioned at
func GetCurrentScene(ctx context.Context, client *http.Client, baseURL string, saveStateID uuid.UUID) (*chat.TurnResponse, error) {
	url := fmt.Sprintf("%s/v1/turn/%s", baseURL, saveStateID.String())
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create scene request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send scene request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("turn endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var turnResp chat.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&turnResp); err != nil {
		return nil, fmt.Errorf("failed to decode turn response: %w", err)
	}
	return &turnResp, nil
}

// PostTurn resolves a choice synchronously
func PostTurn(ctx context.Context, client *http.Client, baseURL string, saveStateID uuid.UUID, choiceID string) (*chat.TurnResponse, error) {
	reqBody, err := json.Marshal(chat.TurnRequest{
		SaveStateID: saveStateID,
		ChoiceID:    choiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal turn request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", baseURL+"/v1/turn", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send turn request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("turn endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var turnResp chat.TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&turnResp); err != nil {
		return nil, fmt.Errorf("failed to decode turn response: %w", err)
	}
	return &turnResp, nil
}

// PostTurnAsync enqueues a turn and returns the request_id
func PostTurnAsync(ctx context.Context, client *http.Client, baseURL string, saveStateID uuid.UUID, choiceID string) (string, error) {
	reqBody, err := json.Marshal(chat.TurnRequest{
		SaveStateID: saveStateID,
		ChoiceID:    choiceID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal turn request: %w", err)
	}

	url := baseURL + "/v1/turn?async=true"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create turn request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send turn request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("turn endpoint returned %d (expected 202): %s", resp.StatusCode, string(body))
	}

	var asyncResp AsyncTurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&asyncResp); err != nil {
		return "", fmt.Errorf("failed to parse async turn response: %w", err)
	}
	return asyncResp.RequestID, nil
}

// PollForTurnCompletion polls the savestate until its UpdatedAt moves
// past the pre-turn timestamp, meaning the worker has processed the
// queued request.
func PollForTurnCompletion(ctx context.Context, client *http.Client, baseURL string, saveStateID uuid.UUID, before time.Time) (*state.SaveState, error) {
	deadline := time.Now().Add(TurnTimeout)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			s, err := GetSaveState(ctx, client, baseURL, saveStateID)
			if err != nil {
				return nil, err
			}
			if s.UpdatedAt.After(before) {
				return s, nil
			}
			if time.Now().After(deadline) {
				return nil, fmt.Errorf("timeout waiting for savestate update after %v", TurnTimeout)
			}
		}
	}
}
