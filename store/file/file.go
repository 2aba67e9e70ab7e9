package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mzyy1001/AI-Custom-service/store"
)

// FileCheckpointStore implements store.CheckpointStore with one JSON file per
// checkpoint in a directory.
type FileCheckpointStore struct {
	dir string
}

var _ store.CheckpointStore = (*FileCheckpointStore)(nil)

// NewFileCheckpointStore creates a store rooted at dir, creating the
// directory when missing.
func NewFileCheckpointStore(dir string) (*FileCheckpointStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileCheckpointStore{dir: dir}, nil
}

func (s *FileCheckpointStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the checkpoint as an indented JSON file.
func (s *FileCheckpointStore) Save(_ context.Context, checkpoint *store.Checkpoint) error {
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	tmp := s.path(checkpoint.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path(checkpoint.ID)); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Load reads a checkpoint by id.
func (s *FileCheckpointStore) Load(_ context.Context, checkpointID string) (*store.Checkpoint, error) {
	data, err := os.ReadFile(s.path(checkpointID))
	if os.IsNotExist(err) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	var cp store.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", checkpointID, err)
	}
	return &cp, nil
}

// List returns all checkpoints of a run, ordered by segment.
func (s *FileCheckpointStore) List(ctx context.Context, runID string) ([]*store.Checkpoint, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	var out []*store.Checkpoint
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		cp, err := s.Load(ctx, strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			return nil, err
		}
		if cp.RunID == runID {
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out, nil
}

// Delete removes a checkpoint file. Deleting a missing id is not an error.
func (s *FileCheckpointStore) Delete(_ context.Context, checkpointID string) error {
	err := os.Remove(s.path(checkpointID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

// Clear removes every checkpoint of a run.
func (s *FileCheckpointStore) Clear(ctx context.Context, runID string) error {
	checkpoints, err := s.List(ctx, runID)
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		if err := s.Delete(ctx, cp.ID); err != nil {
			return err
		}
	}
	return nil
}
