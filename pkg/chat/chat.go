package chat

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// TurnRequest is a player turn submitted to the api: the save to act
// on and the id of the chosen choice in the current scene.
type TurnRequest struct {
	SaveStateID uuid.UUID `json:"savestate_id"`
	ChoiceID    string    `json:"choice_id"`
}

// TurnResponse carries back the scene the player now faces.
type TurnResponse struct {
	SaveStateID uuid.UUID    `json:"savestate_id"`
	SceneID     string       `json:"scene_id"`
	Scene       *state.Scene `json:"scene,omitempty"`
	Generated   bool         `json:"generated"`
}

const (
	ChatRoleUser   = "user"
	ChatRoleAgent  = "assistant"
	ChatRoleSystem = "system"
)

// ChatMessage is a single message in an LLM conversation, in the role
// convention shared by the provider APIs.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (tr *TurnRequest) Validate() error {
	if tr.ChoiceID == "" {
		return fmt.Errorf("choice_id cannot be empty")
	}
	return nil
}
