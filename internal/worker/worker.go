package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lorekeeper/internal/services/queue"
	"github.com/jwebster45206/lorekeeper/pkg/chat"
	queuePkg "github.com/jwebster45206/lorekeeper/pkg/queue"
)

const (
	workerTimeout = 5 * time.Second
)

// Worker processes requests from the shared queue
type Worker struct {
	id          string
	queue       *queue.RequestQueue
	turns       *TurnProcessor
	lore        *LoreProcessor
	redisClient *redis.Client
	log         *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
}

// New creates a new worker instance
func New(requestQueue *queue.RequestQueue, turns *TurnProcessor, lore *LoreProcessor, redisClient *redis.Client, log *slog.Logger, workerID string) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	if workerID == "" {
		workerID = fmt.Sprintf("worker-%s", uuid.New().String()[:8])
	}

	return &Worker{
		id:          workerID,
		queue:       requestQueue,
		turns:       turns,
		lore:        lore,
		redisClient: redisClient,
		log:         log,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start begins processing requests from the queue
func (w *Worker) Start() error {
	w.log.Info("Worker starting", "worker_id", w.id)

	for {
		select {
		case <-w.ctx.Done():
			w.log.Info("Worker shutting down", "worker_id", w.id)
			return nil
		default:
			if err := w.processNextRequest(); err != nil {
				w.log.Error("Error processing request", "error", err, "worker_id", w.id)
				// Continue processing even on error
				time.Sleep(1 * time.Second)
			}
		}
	}
}

// Stop gracefully shuts down the worker
func (w *Worker) Stop() {
	w.log.Info("Worker stop requested", "worker_id", w.id)
	w.cancel()
}

// processNextRequest pulls the next request from the queue and processes it
func (w *Worker) processNextRequest() error {
	req, err := w.queue.BlockingDequeue(w.ctx, workerTimeout)
	if err != nil {
		return fmt.Errorf("failed to dequeue request: %w", err)
	}

	if req == nil {
		// Queue is empty or timeout occurred, which is normal
		return nil
	}

	w.log.Info("Received request from queue",
		"worker_id", w.id,
		"request_id", req.RequestID,
		"type", req.Type,
		"savestate_id", req.SaveStateID.String(),
	)

	// Try to acquire the per-save lock
	locked, err := w.acquireSaveLock(req.SaveStateID)
	if err != nil {
		return fmt.Errorf("failed to acquire save lock: %w", err)
	}
	if !locked {
		// Another worker is processing this save state.
		// Re-queue at the end and try the next request.
		w.log.Info("Save already locked, re-queueing request",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"savestate_id", req.SaveStateID.String(),
		)
		if err := w.queue.Enqueue(w.ctx, req); err != nil {
			return fmt.Errorf("failed to re-queue request: %w", err)
		}
		return nil
	}

	defer w.releaseSaveLock(req.SaveStateID)
	return w.processRequest(req)
}

// acquireSaveLock attempts to acquire a lock for a save state.
// Returns true if the lock was acquired, false if already locked.
func (w *Worker) acquireSaveLock(saveStateID uuid.UUID) (bool, error) {
	lockKey := fmt.Sprintf("save-lock:%s", saveStateID.String())

	result, err := w.redisClient.SetNX(w.ctx, lockKey, w.id, 30*time.Second).Result()
	if err != nil {
		return false, err
	}

	return result, nil
}

// releaseSaveLock releases the lock for a save state
func (w *Worker) releaseSaveLock(saveStateID uuid.UUID) {
	lockKey := fmt.Sprintf("save-lock:%s", saveStateID.String())

	// Only delete if we own the lock
	script := redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	if err := script.Run(w.ctx, w.redisClient, []string{lockKey}, w.id).Err(); err != nil {
		w.log.Error("Failed to release save lock", "error", err, "savestate_id", saveStateID.String())
	}
}

// processRequest dispatches a single request to the right processor
func (w *Worker) processRequest(req *queuePkg.Request) error {
	start := time.Now()

	switch req.Type {
	case queuePkg.RequestTypeSceneTurn:
		resp, err := w.turns.ProcessTurn(w.ctx, chat.TurnRequest{
			SaveStateID: req.SaveStateID,
			ChoiceID:    req.ChoiceID,
		})
		if err != nil {
			return fmt.Errorf("failed to process scene turn: %w", err)
		}
		w.log.Info("Scene turn processed",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"scene_id", resp.SceneID,
			"generated", resp.Generated,
			"duration_ms", time.Since(start).Milliseconds(),
		)

	case queuePkg.RequestTypeNarrativeSave:
		result, err := w.lore.ProcessNarrativeSave(w.ctx, req.SaveStateID, req.NarrativeLog)
		if err != nil {
			return fmt.Errorf("failed to process narrative save: %w", err)
		}
		w.log.Info("Narrative save processed",
			"worker_id", w.id,
			"request_id", req.RequestID,
			"changed", result.Changed(),
			"duration_ms", time.Since(start).Milliseconds(),
		)

	default:
		return fmt.Errorf("unknown request type: %s", req.Type)
	}

	return nil
}
