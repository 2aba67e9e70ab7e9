package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"

	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/store"
)

func sampleCheckpoint() *store.Checkpoint {
	return &store.Checkpoint{
		ID:            "run-1-0001",
		RunID:         "run-1",
		Segment:       1,
		TotalSegments: 20,
		Document:      graph.New().Document(),
		Timestamp:     time.Now().UTC(),
		Version:       1,
	}
}

func TestPostgresCheckpointStore_Save(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresCheckpointStoreWithPool(mock, "training_checkpoints")
	cp := sampleCheckpoint()
	doc, _ := json.Marshal(cp.Document)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO training_checkpoints")).
		WithArgs(cp.ID, cp.RunID, cp.Segment, cp.TotalSegments, doc, cp.Timestamp, cp.Version).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = s.Save(context.Background(), cp)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckpointStore_Load(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresCheckpointStoreWithPool(mock, "training_checkpoints")
	cp := sampleCheckpoint()
	doc, _ := json.Marshal(cp.Document)

	rows := pgxmock.NewRows([]string{"id", "run_id", "segment", "total_segments", "document", "timestamp", "version"}).
		AddRow(cp.ID, cp.RunID, cp.Segment, cp.TotalSegments, doc, cp.Timestamp, cp.Version)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, segment, total_segments, document, timestamp, version")).
		WithArgs(cp.ID).
		WillReturnRows(rows)

	loaded, err := s.Load(context.Background(), cp.ID)
	assert.NoError(t, err)
	assert.Equal(t, cp.RunID, loaded.RunID)
	assert.Equal(t, cp.Segment, loaded.Segment)
	assert.Equal(t, cp.Document, loaded.Document)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCheckpointStore_LoadNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresCheckpointStoreWithPool(mock, "training_checkpoints")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, run_id, segment, total_segments, document, timestamp, version")).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows([]string{"id", "run_id", "segment", "total_segments", "document", "timestamp", "version"}))

	_, err = s.Load(context.Background(), "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestPostgresCheckpointStore_Clear(t *testing.T) {
	mock, err := pgxmock.NewPool()
	assert.NoError(t, err)
	defer mock.Close()

	s := NewPostgresCheckpointStoreWithPool(mock, "training_checkpoints")

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM training_checkpoints")).
		WithArgs("run-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	assert.NoError(t, s.Clear(context.Background(), "run-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
