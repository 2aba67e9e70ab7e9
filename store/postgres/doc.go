// Package postgres stores training checkpoints in PostgreSQL.
//
// Useful when corpora are ingested on a central server and several operators
// want to inspect snapshot history. The store talks to the database through
// the DBPool interface, so tests can substitute a pgxmock pool.
package postgres
