package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// SaveStateHandler manages playthrough save states.
//
// Routes:
//
//	POST /v1/savestate               - Create a new save state
//	GET /v1/savestate/{id}           - Read a save state by ID
//	GET /v1/savestate/{id}/sheet     - Character sheet view
//	POST /v1/savestate/{id}/reset    - Reset a save state to defaults
//	DELETE /v1/savestate/{id}        - Delete a save state by ID
type SaveStateHandler struct {
	storage storage.Storage
	logger  *slog.Logger
}

func NewSaveStateHandler(storage storage.Storage, logger *slog.Logger) *SaveStateHandler {
	return &SaveStateHandler{
		storage: storage,
		logger:  logger,
	}
}

// ResetRequest selects how much of the playthrough a reset discards.
// A hard reset also drops the memory log.
type ResetRequest struct {
	Hard bool `json:"hard,omitempty"`
}

// CharacterSheet is the read-only progression view of a save state.
type CharacterSheet struct {
	Stats         map[string]int    `json:"stats"`
	Level         state.Level       `json:"level"`
	Traits        state.Traits      `json:"traits"`
	Inventory     state.Inventory   `json:"inventory"`
	Relationships map[string]int    `json:"relationships"`
	Companions    []state.Companion `json:"companions"`
}

func (h *SaveStateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.TrimPrefix(r.URL.Path, "/v1/savestate")
	path = strings.Trim(path, "/")
	parts := []string{}
	if path != "" {
		parts = strings.Split(path, "/")
	}

	var saveStateID uuid.UUID
	var err error
	if len(parts) > 0 {
		saveStateID, err = uuid.Parse(parts[0])
		if err != nil {
			h.logger.Warn("Invalid savestate ID", "id", parts[0], "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid savestate ID format")
			return
		}
	}

	switch {
	case r.Method == http.MethodPost && len(parts) == 0:
		h.handleCreate(w, r)

	case r.Method == http.MethodGet && len(parts) == 1:
		h.handleRead(w, r, saveStateID)

	case r.Method == http.MethodGet && len(parts) == 2 && parts[1] == "sheet":
		h.handleSheet(w, r, saveStateID)

	case r.Method == http.MethodPost && len(parts) == 2 && parts[1] == "reset":
		h.handleReset(w, r, saveStateID)

	case r.Method == http.MethodDelete && len(parts) == 1:
		h.handleDelete(w, r, saveStateID)

	default:
		h.logger.Warn("Unsupported savestate route", "method", r.Method, "path", r.URL.Path)
		writeError(w, h.logger, http.StatusMethodNotAllowed,
			"Method not allowed. Supported: POST, GET, DELETE")
	}
}

func (h *SaveStateHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("Creating new savestate")

	s := state.NewSaveState()

	// Position the new save at the story's opening scene when one is
	// defined; otherwise the built-in default applies.
	if story, err := h.storage.GetStory(r.Context()); err == nil && story.OpeningScene != "" {
		s.Position.Scene = story.OpeningScene
	}

	if err := h.storage.SaveSaveState(r.Context(), s.ID, s); err != nil {
		h.logger.Error("Failed to save new savestate", "error", err, "id", s.ID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to create savestate")
		return
	}

	h.logger.Debug("Savestate created", "id", s.ID.String())
	writeJSON(w, h.logger, http.StatusCreated, s)
}

func (h *SaveStateHandler) handleRead(w http.ResponseWriter, r *http.Request, saveStateID uuid.UUID) {
	s, err := h.storage.LoadSaveState(r.Context(), saveStateID)
	if err != nil {
		h.logger.Error("Failed to load savestate", "error", err, "id", saveStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load savestate")
		return
	}

	if s == nil {
		h.logger.Warn("Savestate not found", "id", saveStateID.String())
		writeError(w, h.logger, http.StatusNotFound, "Savestate not found")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, s)
}

func (h *SaveStateHandler) handleSheet(w http.ResponseWriter, r *http.Request, saveStateID uuid.UUID) {
	s, err := h.storage.LoadSaveState(r.Context(), saveStateID)
	if err != nil {
		h.logger.Error("Failed to load savestate", "error", err, "id", saveStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load savestate")
		return
	}

	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Savestate not found")
		return
	}

	sheet := CharacterSheet{
		Stats:         s.Stats,
		Level:         state.ComputeLevel(s.Stats),
		Traits:        s.Traits,
		Inventory:     s.Inventory,
		Relationships: s.Relationships,
		Companions:    s.Companions,
	}
	writeJSON(w, h.logger, http.StatusOK, sheet)
}

func (h *SaveStateHandler) handleReset(w http.ResponseWriter, r *http.Request, saveStateID uuid.UUID) {
	var req ResetRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("Invalid JSON in reset request body", "error", err)
			writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
			return
		}
	}

	fresh, err := h.storage.ResetSaveState(r.Context(), saveStateID, req.Hard)
	if err != nil {
		h.logger.Error("Failed to reset savestate", "error", err, "id", saveStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to reset savestate")
		return
	}

	h.logger.Info("Savestate reset", "id", saveStateID.String(), "hard", req.Hard)
	writeJSON(w, h.logger, http.StatusOK, fresh)
}

func (h *SaveStateHandler) handleDelete(w http.ResponseWriter, r *http.Request, saveStateID uuid.UUID) {
	if err := h.storage.DeleteSaveState(r.Context(), saveStateID); err != nil {
		h.logger.Error("Failed to delete savestate", "error", err, "id", saveStateID.String())
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to delete savestate")
		return
	}
	h.logger.Debug("Savestate deleted", "id", saveStateID.String())
	w.WriteHeader(http.StatusNoContent)
}
