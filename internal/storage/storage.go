package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwebster45206/lorekeeper/pkg/scenario"
	"github.com/jwebster45206/lorekeeper/pkg/state"
)

// Storage defines a unified interface for all persistence: save states
// in Redis, the story definition and lore corpus on the filesystem.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Save state operations (Redis-backed)
	SaveSaveState(ctx context.Context, id uuid.UUID, s *state.SaveState) error
	// LoadSaveState returns (nil, nil) when no record exists. A
	// corrupt record is treated the same as a missing one: the
	// caller gets a fresh default state rather than an error.
	LoadSaveState(ctx context.Context, id uuid.UUID) (*state.SaveState, error)
	DeleteSaveState(ctx context.Context, id uuid.UUID) error
	// ResetSaveState deletes the record and returns a freshly
	// defaulted state under the same id, positioned at the opening
	// scene. A hard reset also drops the memory log; a soft reset
	// carries it over.
	ResetSaveState(ctx context.Context, id uuid.UUID, hard bool) (*state.SaveState, error)

	// Story operations (filesystem-backed)
	GetStory(ctx context.Context) (*scenario.Story, error)

	// Lore operations (filesystem-backed). ListLoreFiles returns the
	// full corpus keyed by file name; this is also the allow-list for
	// lore writes.
	ListLoreFiles(ctx context.Context) (map[string][]byte, error)
	WriteLoreFile(ctx context.Context, name string, data []byte) error
}
