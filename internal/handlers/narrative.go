package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/internal/services/queue"
	"github.com/jwebster45206/lorekeeper/internal/worker"
	queuePkg "github.com/jwebster45206/lorekeeper/pkg/queue"
)

// NarrativeSaveRequest asks for a narrative log to be folded into the
// lore corpus.
type NarrativeSaveRequest struct {
	SaveStateID  uuid.UUID `json:"savestate_id,omitempty"`
	NarrativeLog string    `json:"narrative_log"`
}

// NarrativeHandler accepts narrative saves. With a queue configured the
// save runs on a worker; without one it runs inline.
//
// Route: POST /v1/narrative-save
type NarrativeHandler struct {
	lore   *worker.LoreProcessor
	queue  *queue.RequestQueue
	logger *slog.Logger
}

func NewNarrativeHandler(lore *worker.LoreProcessor, requestQueue *queue.RequestQueue, logger *slog.Logger) *NarrativeHandler {
	return &NarrativeHandler{
		lore:   lore,
		queue:  requestQueue,
		logger: logger,
	}
}

func (h *NarrativeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if r.Method != http.MethodPost {
		writeError(w, h.logger, http.StatusMethodNotAllowed, "Method not allowed. Supported: POST")
		return
	}

	var req NarrativeSaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in narrative save body", "error", err)
		writeError(w, h.logger, http.StatusBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.NarrativeLog) == "" {
		writeError(w, h.logger, http.StatusBadRequest, "narrative_log is required")
		return
	}

	if h.queue != nil {
		qr := &queuePkg.Request{
			RequestID:    uuid.New().String(),
			Type:         queuePkg.RequestTypeNarrativeSave,
			SaveStateID:  req.SaveStateID,
			NarrativeLog: req.NarrativeLog,
		}
		if err := h.queue.Enqueue(r.Context(), qr); err != nil {
			h.logger.Error("Failed to enqueue narrative save", "error", err)
			writeError(w, h.logger, http.StatusInternalServerError, "Failed to enqueue narrative save")
			return
		}
		writeJSON(w, h.logger, http.StatusAccepted, map[string]string{
			"request_id": qr.RequestID,
			"status":     "queued",
		})
		return
	}

	result, err := h.lore.ProcessNarrativeSave(r.Context(), req.SaveStateID, req.NarrativeLog)
	if err != nil {
		h.logger.Error("Narrative save failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "Narrative save failed")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"changed":        result.Changed(),
		"updated":        len(result.Updated),
		"rejected":       result.Rejected,
		"skipped_files":  result.SkippedFiles,
		"binding_errors": result.BindingErrors,
	})
}
