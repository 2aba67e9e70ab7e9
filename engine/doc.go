// Package engine runs one diagnostic session over a trained feature tree.
//
// The Engine owns the cursor, the append-only dialog log and a per-session
// side-table of node state (visited flags, memoized feature states, problem
// modes). The shared graph stays read-only, so any number of concurrent
// sessions can run over one loaded tree, each with its own engine.
//
// Traversal is dispatched per node kind through the NodeBehavior interface:
// Origin routes into a first symptom, Feature answers an observable yes/no
// predicate against the dialog, Problem works through solutions and
// sub-features with a hard/soft exit policy, Solution asks the user whether
// a fix worked. Behaviors return either a next node, the FailureSentinel, or
// a stay-and-clarify request that surfaces to the outer chat layer as
// StepResult.AwaitingInput.
//
// Oracle failures never abort a session: every behavior retries once and
// then falls back to its deterministic rule, so sessions always end on the
// Success or Failure terminal.
package engine
