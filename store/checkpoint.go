package store

import (
	"context"
	"errors"
	"time"

	"github.com/mzyy1001/AI-Custom-service/graph"
)

// ErrNotFound is returned when a checkpoint id does not exist.
var ErrNotFound = errors.New("checkpoint not found")

// Checkpoint is one snapshot of the graph taken during a training run.
type Checkpoint struct {
	ID            string          `json:"id"`
	RunID         string          `json:"run_id"`
	Segment       int             `json:"segment"`
	TotalSegments int             `json:"total_segments"`
	Document      *graph.Document `json:"document"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
}

// CheckpointStore persists training snapshots so a long ingest can be
// inspected or resumed after a crash.
type CheckpointStore interface {
	// Save stores a checkpoint
	Save(ctx context.Context, checkpoint *Checkpoint) error

	// Load retrieves a checkpoint by ID
	Load(ctx context.Context, checkpointID string) (*Checkpoint, error)

	// List returns all checkpoints of a training run, oldest first
	List(ctx context.Context, runID string) ([]*Checkpoint, error)

	// Delete removes a checkpoint
	Delete(ctx context.Context, checkpointID string) error

	// Clear removes all checkpoints of a training run
	Clear(ctx context.Context, runID string) error
}
