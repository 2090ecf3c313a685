package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// saveStateTTL keeps finished playthroughs from accumulating forever.
const saveStateTTL = 30 * 24 * time.Hour

// RedisStorage implements the Storage interface using Redis for save
// states and the filesystem for static resources (story definition,
// lore modules).
type RedisStorage struct {
	client    *redis.Client
	logger    *slog.Logger
	storyPath string
	loreDir   string
}

// Ensure RedisStorage implements Storage interface
var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage creates a new Redis storage instance. redisURL is a
// full URL like redis://localhost:6379.
func NewRedisStorage(redisURL, storyPath, loreDir string, logger *slog.Logger) (*RedisStorage, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return &RedisStorage{
		client:    redis.NewClient(opts),
		logger:    logger,
		storyPath: storyPath,
		loreDir:   loreDir,
	}, nil
}

// Health and lifecycle methods

func (r *RedisStorage) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStorage) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStorage) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

// Save state operations (Redis-backed)

func saveStateKey(id uuid.UUID) string {
	return "savestate:" + id.String()
}

func (r *RedisStorage) SaveSaveState(ctx context.Context, id uuid.UUID, s *state.SaveState) error {
	s.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(s)
	if err != nil {
		r.logger.Error("Failed to marshal savestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to marshal savestate: %w", err)
	}

	// A single SET overwrites atomically; no partial write is ever
	// visible to a reader.
	if err := r.client.Set(ctx, saveStateKey(id), string(data), saveStateTTL).Err(); err != nil {
		r.logger.Error("Failed to save savestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to save savestate: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadSaveState(ctx context.Context, id uuid.UUID) (*state.SaveState, error) {
	cmd := r.client.Get(ctx, saveStateKey(id))
	if err := cmd.Err(); err != nil {
		if err == redis.Nil {
			return nil, nil // Return nil for not found
		}
		r.logger.Error("Failed to load savestate", "uuid", id, "error", err)
		return nil, fmt.Errorf("failed to load savestate: %w", err)
	}

	data := cmd.Val()
	if data == "" {
		return nil, nil
	}

	s, ok := state.FromJSON([]byte(data))
	if !ok {
		// Losing one save beats making the whole tool unusable.
		r.logger.Warn("Corrupt savestate record, falling back to defaults", "uuid", id)
		s.ID = id
	}
	return s, nil
}

func (r *RedisStorage) DeleteSaveState(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Del(ctx, saveStateKey(id)).Err(); err != nil {
		r.logger.Error("Failed to delete savestate", "uuid", id, "error", err)
		return fmt.Errorf("failed to delete savestate: %w", err)
	}
	return nil
}

func (r *RedisStorage) ResetSaveState(ctx context.Context, id uuid.UUID, hard bool) (*state.SaveState, error) {
	old, err := r.LoadSaveState(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.DeleteSaveState(ctx, id); err != nil {
		return nil, err
	}

	fresh := state.NewSaveState()
	fresh.ID = id
	if !hard && old != nil {
		fresh.MemoryLog = old.MemoryLog
	}
	if err := r.SaveSaveState(ctx, id, fresh); err != nil {
		return nil, err
	}
	return fresh, nil
}

// Story operations (filesystem-backed)

func (r *RedisStorage) GetStory(ctx context.Context) (*scenario.Story, error) {
	return scenario.LoadStory(r.storyPath)
}

// Lore operations (filesystem-backed)

func (r *RedisStorage) ListLoreFiles(ctx context.Context) (map[string][]byte, error) {
	entries, err := os.ReadDir(r.loreDir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string][]byte{}, nil
		}
		return nil, fmt.Errorf("failed to read lore directory: %w", err)
	}

	files := make(map[string][]byte)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !isLoreFile(name) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.loreDir, name))
		if err != nil {
			r.logger.Warn("Failed to read lore file", "file", name, "error", err)
			continue
		}
		files[name] = data
	}
	return files, nil
}

func (r *RedisStorage) WriteLoreFile(ctx context.Context, name string, data []byte) error {
	// The name must be a bare file name inside the lore dir; anything
	// path-like is refused.
	if name != filepath.Base(name) || !isLoreFile(name) {
		return fmt.Errorf("invalid lore file name: %s", name)
	}
	path := filepath.Join(r.loreDir, name)
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("lore file does not exist: %s", name)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write lore file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace lore file: %w", err)
	}
	r.logger.Info("Lore file updated", "file", name)
	return nil
}

func isLoreFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}

// LoreFileNames returns the sorted lore file names, mainly for logs.
func LoreFileNames(files map[string][]byte) []string {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
