// Package store persists training checkpoints: periodic snapshots of the
// diagnostic graph taken while a corpus is ingested.
//
// The primary artifact of training is always the graph document itself;
// checkpoints are supplementary, letting a long run be inspected mid-flight
// or resumed from the last snapshot after a crash. Three backends ship with
// the module:
//
//   - store/file: one JSON file per checkpoint, zero configuration
//   - store/sqlite: a local database, useful when runs accumulate
//   - store/postgres: a shared database for training on a central server
//
// All backends implement the CheckpointStore interface.
package store
