// Package ftree is an LLM-guided troubleshooting engine for after-sales
// support: it walks a user through a trained diagnostic graph of observable
// features, latent problems and candidate solutions.
//
// The module has two lifetimes. During training, the builder in package
// train ingests line-oriented fault-to-fix chains, classifies each line with
// the LLM oracle, deduplicates against existing nodes by strict semantic
// equivalence, and grows the graph monotonically; the result persists as a
// single human-diffable JSON document. In production, package engine loads
// that document and runs one session per user: features are judged yes/no
// against the accumulated dialog, sibling branches are routed by the oracle,
// and solutions are confirmed with the user until the session ends on the
// unique Success or Failure terminal.
//
// Package layout:
//
//   - graph: the typed diagnostic multigraph and its JSON codec
//   - oracle: typed LLM operations over an OpenAI-compatible or langchaingo
//     backend, with verdict caching
//   - engine: the per-session traversal state machine
//   - train: the incremental corpus builder
//   - store: file/sqlite/postgres checkpoint stores for training snapshots
//   - cmd/feature-engine: the train and produce CLI
package ftree
