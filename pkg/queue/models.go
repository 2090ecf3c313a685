package queue

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RequestType identifies the type of request in the queue
type RequestType string

const (
	// RequestTypeNarrativeSave folds a narrative log into the lore
	// corpus via the safe merger.
	RequestTypeNarrativeSave RequestType = "narrative_save"

	// RequestTypeSceneTurn resolves a player choice asynchronously.
	RequestTypeSceneTurn RequestType = "scene_turn"
)

// Request represents a unified request in the queue
type Request struct {
	RequestID   string      `json:"request_id"`
	Type        RequestType `json:"type"`
	SaveStateID uuid.UUID   `json:"savestate_id"`

	// Narrative save fields
	NarrativeLog string `json:"narrative_log,omitempty"`

	// Scene turn fields
	ChoiceID string `json:"choice_id,omitempty"`

	EnqueuedAt time.Time `json:"enqueued_at"`
}

// MarshalJSON serializes the request to JSON for Redis storage
func (r *Request) MarshalJSON() ([]byte, error) {
	type Alias Request
	return json.Marshal(&struct {
		SaveStateID string `json:"savestate_id"`
		*Alias
	}{
		SaveStateID: r.SaveStateID.String(),
		Alias:       (*Alias)(r),
	})
}

// UnmarshalJSON deserializes the request from JSON in Redis
func (r *Request) UnmarshalJSON(data []byte) error {
	type Alias Request
	aux := &struct {
		SaveStateID string `json:"savestate_id"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	saveStateID, err := uuid.Parse(aux.SaveStateID)
	if err != nil {
		return err
	}

	r.SaveStateID = saveStateID
	return nil
}

// ToJSON converts the request to JSON bytes for Redis
func (r *Request) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}

// FromJSON parses a request from JSON bytes
func FromJSON(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}
	return &req, nil
}
