// Package train grows a diagnostic graph from a line-oriented corpus of
// fault-to-fix chains.
//
// A corpus is a plain text file of segments separated by blank lines or a
// "###" delimiter; each segment narrates one diagnosis from first symptom to
// applied fix. The Builder walks each segment with a cursor starting at the
// graph root: the first line is always a feature, later lines are classified
// by the oracle and spliced in as features, problems or solutions. Existing
// nodes are reused when the oracle judges a line strictly equivalent — first
// among the cursor's children, then across the whole graph — so repeated
// chains converge onto shared branches instead of duplicating them.
//
// Training is monotone (nodes and edges are only ever added) and stable: with
// a cached oracle, re-running the same corpus reproduces the same graph. The
// graph is persisted through the injected SaveFunc every ⌈5%⌉ of segments
// and once at the end.
package train
