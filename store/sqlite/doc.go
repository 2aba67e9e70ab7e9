// Package sqlite stores training checkpoints in a local SQLite database.
//
// Best for single-machine training where snapshot history should outlive the
// checkpoint directory, with zero external services to run.
package sqlite
