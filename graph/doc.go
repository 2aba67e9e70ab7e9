// Package graph models the diagnostic feature tree: a typed directed
// multigraph of observable features, latent problems and candidate solutions.
//
// Six node kinds exist (Origin, Feature, Problem, Solution, Success,
// Failure) with a fixed edge table enforced by Graph.Connect:
//
//	Origin   → Feature
//	Feature  → Problem, Feature
//	Problem  → Solution, Feature
//	Solution → Success (the unique one)
//
// Success and Failure are terminals; the Failure node is reached only by
// run-time traversal decisions and is never stored as an edge. Nodes live in
// an arena and reference each other by id, so parent back-pointers do not
// create ownership cycles and many sessions can share one immutable graph.
//
// A graph serializes to a single JSON document (see Document) with stable
// ids, written indented so trained trees stay human-diffable.
package graph
