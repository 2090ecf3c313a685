package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/internal/services/queue"
	"github.com/jwebster45206/lorekeeper/internal/storage"
	"github.com/jwebster45206/lorekeeper/internal/worker"
	"github.com/jwebster45206/lorekeeper/pkg/chat"
	queuePkg "github.com/jwebster45206/lorekeeper/pkg/queue"
)

// TurnHandler resolves player turns.
//
// Routes:
//
//	POST /v1/turn                - Resolve a choice; ?async=true enqueues instead
//	GET /v1/turn/{savestate_id}  - Current scene for a save state
type TurnHandler struct {
	storage storage.Storage
	turns   *worker.TurnProcessor
	queue   *queue.RequestQueue
	logger  *slog.Logger
}

func NewTurnHandler(storage storage.Storage, turns *worker.TurnProcessor, requestQueue *queue.RequestQueue, logger *slog.Logger) *TurnHandler {
	return &TurnHandler{
		storage: storage,
		turns:   turns,
		queue:   requestQueue,
		logger:  logger,
	}
}

func (h *TurnHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.Method {
	case http.MethodPost:
		h.handleTurn(w, r)
	case http.MethodGet:
		h.handleCurrentScene(w, r)
	default:
		writeError(w, h.logger, http.StatusMethodNotAllowed,
			"Method not allowed. Supported: POST, GET")
	}
}

func (h *TurnHandler) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req chat.TurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in turn request body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	if req.SaveStateID == uuid.Nil {
		writeError(w, h.logger, http.StatusBadRequest, "savestate_id is required")
		return
	}

	if r.URL.Query().Get("async") == "true" && h.queue != nil {
		qr := &queuePkg.Request{
			RequestID:   uuid.New().String(),
			Type:        queuePkg.RequestTypeSceneTurn,
			SaveStateID: req.SaveStateID,
			ChoiceID:    req.ChoiceID,
		}
		if err := h.queue.Enqueue(r.Context(), qr); err != nil {
			h.logger.Error("Failed to enqueue turn", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to enqueue turn")
			return
		}
		writeJSON(w, h.logger, http.StatusAccepted, map[string]string{
			"request_id": qr.RequestID,
			"status":     "queued",
		})
		return
	}

	resp, err := h.turns.ProcessTurn(r.Context(), req)
	if err != nil {
		h.logger.Warn("Turn failed", "error", err, "savestate_id", req.SaveStateID.String())
		status := http.StatusBadRequest
		if strings.Contains(err.Error(), "failed to") {
			status = http.StatusInternalServerError
		}
		writeError(w, h.logger, status, err.Error())
		return
	}

	writeJSON(w, h.logger, http.StatusOK, resp)
}

func (h *TurnHandler) handleCurrentScene(w http.ResponseWriter, r *http.Request) {
	idStr := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/turn"), "/")
	if idStr == "" {
		writeError(w, h.logger, http.StatusBadRequest, "Savestate ID is required")
		return
	}

	saveStateID, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid savestate ID format")
		return
	}

	s, err := h.storage.LoadSaveState(r.Context(), saveStateID)
	if err != nil {
		h.logger.Error("Failed to load savestate", "error", err, "id", idStr)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load savestate")
		return
	}
	if s == nil {
		writeError(w, h.logger, http.StatusNotFound, "Savestate not found")
		return
	}

	story, err := h.storage.GetStory(r.Context())
	if err != nil {
		h.logger.Error("Failed to load story", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Failed to load story")
		return
	}

	scene := h.turns.CurrentScene(story, s)
	writeJSON(w, h.logger, http.StatusOK, chat.TurnResponse{
		SaveStateID: s.ID,
		SceneID:     scene.ID,
		Scene:       scene,
	})
}
