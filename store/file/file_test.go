package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/store"
)

func sampleCheckpoint(id, runID string, segment int) *store.Checkpoint {
	return &store.Checkpoint{
		ID:            id,
		RunID:         runID,
		Segment:       segment,
		TotalSegments: 10,
		Document:      graph.New().Document(),
		Timestamp:     time.Now().UTC(),
		Version:       1,
	}
}

func TestFileCheckpointStore_New(t *testing.T) {
	t.Parallel()

	t.Run("creates directory if missing", func(t *testing.T) {
		t.Parallel()
		dir := filepath.Join(t.TempDir(), "checkpoints")

		s, err := NewFileCheckpointStore(dir)
		if err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
		if s == nil {
			t.Fatal("Store should not be nil")
		}
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			t.Error("Directory should have been created")
		}
	})

	t.Run("works with existing directory", func(t *testing.T) {
		t.Parallel()
		if _, err := NewFileCheckpointStore(t.TempDir()); err != nil {
			t.Fatalf("Failed to create store: %v", err)
		}
	})
}

func TestFileCheckpointStore_SaveLoad(t *testing.T) {
	t.Parallel()
	s, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	cp := sampleCheckpoint("run-1-0001", "run-1", 1)
	if err := s.Save(ctx, cp); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := s.Load(ctx, "run-1-0001")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.RunID != "run-1" || loaded.Segment != 1 {
		t.Errorf("Loaded checkpoint mismatch: %+v", loaded)
	}
	if loaded.Document == nil || len(loaded.Document.Nodes) != 3 {
		t.Errorf("Document did not round-trip: %+v", loaded.Document)
	}

	if _, err := s.Load(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestFileCheckpointStore_ListDeleteClear(t *testing.T) {
	t.Parallel()
	s, err := NewFileCheckpointStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	ctx := context.Background()

	for i, id := range []string{"run-1-0002", "run-1-0001", "run-2-0001"} {
		runID := "run-1"
		if id == "run-2-0001" {
			runID = "run-2"
		}
		if err := s.Save(ctx, sampleCheckpoint(id, runID, 2-i)); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	list, err := s.List(ctx, "run-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(list))
	}
	if list[0].Segment > list[1].Segment {
		t.Error("List should order by segment")
	}

	if err := s.Delete(ctx, "run-1-0001"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := s.Delete(ctx, "run-1-0001"); err != nil {
		t.Errorf("Deleting a missing checkpoint should not fail: %v", err)
	}

	if err := s.Clear(ctx, "run-1"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	list, err = s.List(ctx, "run-1")
	if err != nil {
		t.Fatalf("List after Clear failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected no checkpoints after Clear, got %d", len(list))
	}

	// the other run is untouched
	list, err = s.List(ctx, "run-2")
	if err != nil {
		t.Fatalf("List run-2 failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 checkpoint for run-2, got %d", len(list))
	}
}
