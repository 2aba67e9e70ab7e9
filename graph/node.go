package graph

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Kind identifies the role a node plays in the diagnostic graph.
type Kind string

const (
	KindOrigin   Kind = "Origin"
	KindFeature  Kind = "Feature"
	KindProblem  Kind = "Problem"
	KindSolution Kind = "Solution"
	KindSuccess  Kind = "Success"
	KindFailure  Kind = "Failure"
)

// Valid reports whether k is one of the six node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindOrigin, KindFeature, KindProblem, KindSolution, KindSuccess, KindFailure:
		return true
	}
	return false
}

// ParseKind converts a serialized kind string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: unknown node kind %q", ErrCorruptGraph, s)
	}
	return k, nil
}

// LinkMode qualifies a Feature→Problem edge. A hard problem ends the session
// with Failure when it runs out of options; a soft problem hands control back
// to its parent feature so sibling branches can still be tried.
type LinkMode string

const (
	LinkHard LinkMode = "hard"
	LinkSoft LinkMode = "soft"
)

// ParseLinkMode normalizes a serialized link mode, defaulting to soft.
func ParseLinkMode(s string) LinkMode {
	if strings.EqualFold(s, string(LinkHard)) {
		return LinkHard
	}
	return LinkSoft
}

// ProblemLink is one Feature→Problem edge together with its link mode.
type ProblemLink struct {
	ID   string
	Mode LinkMode
}

// Node is a single vertex of the diagnostic graph. Only identity, kind,
// description and the structural links live here; session state such as
// visited flags or expected feature states belongs to the traversal session,
// never to the shared graph.
type Node struct {
	ID          string
	Kind        Kind
	Description string

	// Parent is the id of the containing node: for a Feature the Origin,
	// Feature or Problem it first hung under, for a Problem its parent
	// Feature, for a Solution its parent Problem.
	Parent string

	// ChildFeatures is populated for Origin, Feature and Problem nodes.
	ChildFeatures []string

	// ChildProblems is populated for Feature nodes only.
	ChildProblems []ProblemLink

	// Solutions is populated for Problem nodes only.
	Solutions []string

	// Mode mirrors the link mode of the first Feature→Problem edge that
	// reached this Problem.
	Mode LinkMode

	// SuccessID points a Solution at the graph's unique Success node.
	SuccessID string
}

// NewNode creates a node with the given identity. Child lists start empty and
// grow through Graph.Connect.
func NewNode(id string, kind Kind, description string) *Node {
	return &Node{
		ID:          id,
		Kind:        kind,
		Description: description,
	}
}

func (n *Node) String() string {
	return fmt.Sprintf("<%s %s>", n.Kind, n.ID)
}

// hasChildFeature reports whether id is already a child feature of n.
func (n *Node) hasChildFeature(id string) bool {
	for _, c := range n.ChildFeatures {
		if c == id {
			return true
		}
	}
	return false
}

// hasChildProblem reports whether id is already a child problem of n.
func (n *Node) hasChildProblem(id string) bool {
	for _, p := range n.ChildProblems {
		if p.ID == id {
			return true
		}
	}
	return false
}

// hasSolution reports whether id is already a solution of n.
func (n *Node) hasSolution(id string) bool {
	for _, s := range n.Solutions {
		if s == id {
			return true
		}
	}
	return false
}

// NewID mints a fresh node id with the given prefix ("F", "P", "S"), never
// colliding with an id already in the graph.
func (g *Graph) NewID(prefix string) string {
	for {
		id := fmt.Sprintf("%s_%s", prefix, uuid.New().String()[:8])
		if _, ok := g.nodes[id]; !ok {
			return id
		}
	}
}
