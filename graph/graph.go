package graph

import (
	"fmt"

	"github.com/mzyy1001/AI-Custom-service/log"
)

// Well-known ids of the three singleton nodes every graph carries.
const (
	RootID    = "ORIGIN"
	SuccessID = "SUCCESS"
	FailureID = "FAILURE"
)

// Graph is the diagnostic multigraph: an arena of nodes referenced by id,
// with Connect as the single place edge rules are enforced. The graph is
// mutable during training only; production sessions treat it as read-only.
type Graph struct {
	Root    string
	Success string
	Failure string

	nodes map[string]*Node
	order []string

	logger log.Logger
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger overrides the graph's logger.
func WithLogger(l log.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// New creates a graph seeded with its three singletons: the Origin root, the
// unique Success and the unique Failure terminal.
func New(opts ...Option) *Graph {
	g := &Graph{
		Root:    RootID,
		Success: SuccessID,
		Failure: FailureID,
		nodes:   make(map[string]*Node),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	g.mustInsert(NewNode(RootID, KindOrigin, "diagnostic session entry"))
	g.mustInsert(NewNode(SuccessID, KindSuccess, "issue resolved"))
	g.mustInsert(NewNode(FailureID, KindFailure, "diagnosis failed"))
	return g
}

func (g *Graph) mustInsert(n *Node) {
	if err := g.Insert(n); err != nil {
		panic(err)
	}
}

// Insert registers a node in the arena. The node's child lists are wired
// separately through Connect.
func (g *Graph) Insert(n *Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("insert: node must carry an id")
	}
	if !n.Kind.Valid() {
		return fmt.Errorf("insert %s: unknown kind %q", n.ID, n.Kind)
	}
	if _, ok := g.nodes[n.ID]; ok {
		return fmt.Errorf("insert %s: %w", n.ID, ErrDuplicateNode)
	}
	g.nodes[n.ID] = n
	g.order = append(g.order, n.ID)
	return nil
}

// Get resolves a node by id.
func (g *Graph) Get(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes in the arena.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// IDs returns all node ids in insertion order.
func (g *Graph) IDs() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// AllOfKind returns every node of the given kind, in insertion order.
func (g *Graph) AllOfKind(k Kind) []*Node {
	var out []*Node
	for _, id := range g.order {
		if n := g.nodes[id]; n.Kind == k {
			out = append(out, n)
		}
	}
	return out
}

type connectOptions struct {
	forceSoft bool
}

// ConnectOption configures a single Connect call.
type ConnectOption func(*connectOptions)

// WithSoftLink forces a Feature→Problem edge to soft regardless of the
// first-problem-hard policy. Used when an already existing Problem is linked
// under an additional Feature.
func WithSoftLink() ConnectOption {
	return func(o *connectOptions) { o.forceSoft = true }
}

// Connect adds a parent→child edge, enforcing the edge rules:
//
//	Origin   → Feature
//	Feature  → Problem | Feature
//	Problem  → Solution | Feature
//	Solution → Success (the unique one)
//
// Back-pointers are set on the child. A duplicate edge is logged and skipped;
// an illegal kind pair fails with *EdgeRuleError. The Failure terminal is
// reached only at run time and is never stored as an edge.
func (g *Graph) Connect(parentID, childID string, opts ...ConnectOption) error {
	var o connectOptions
	for _, opt := range opts {
		opt(&o)
	}

	parent, ok := g.nodes[parentID]
	if !ok {
		return fmt.Errorf("connect %s→%s: parent: %w", parentID, childID, ErrNodeNotFound)
	}
	child, ok := g.nodes[childID]
	if !ok {
		return fmt.Errorf("connect %s→%s: child: %w", parentID, childID, ErrNodeNotFound)
	}
	if child.Kind == KindFailure {
		return g.edgeRuleError(parent, child)
	}

	switch parent.Kind {
	case KindOrigin:
		if child.Kind != KindFeature {
			return g.edgeRuleError(parent, child)
		}
		g.appendFeature(parent, child)

	case KindFeature:
		switch child.Kind {
		case KindFeature:
			g.appendFeature(parent, child)
		case KindProblem:
			g.appendProblem(parent, child, o.forceSoft)
		default:
			return g.edgeRuleError(parent, child)
		}

	case KindProblem:
		switch child.Kind {
		case KindFeature:
			g.appendFeature(parent, child)
		case KindSolution:
			g.appendSolution(parent, child)
		default:
			return g.edgeRuleError(parent, child)
		}

	case KindSolution:
		if child.Kind != KindSuccess || child.ID != g.Success {
			return g.edgeRuleError(parent, child)
		}
		parent.SuccessID = child.ID

	default:
		// Success and Failure have no outgoing edges.
		return g.edgeRuleError(parent, child)
	}
	return nil
}

func (g *Graph) edgeRuleError(parent, child *Node) error {
	return &EdgeRuleError{
		ParentID:   parent.ID,
		ParentKind: parent.Kind,
		ChildID:    child.ID,
		ChildKind:  child.Kind,
	}
}

func (g *Graph) appendFeature(parent, child *Node) {
	if parent.hasChildFeature(child.ID) {
		g.logger.Warn("feature %s already a child of %s, skipped", child.ID, parent.ID)
		return
	}
	parent.ChildFeatures = append(parent.ChildFeatures, child.ID)
	if child.Parent == "" {
		child.Parent = parent.ID
	}
}

// appendProblem applies the link-mode policy: the first problem a feature
// receives is hard, every later one soft. forceSoft overrides the policy.
func (g *Graph) appendProblem(parent, child *Node, forceSoft bool) {
	if parent.hasChildProblem(child.ID) {
		g.logger.Warn("problem %s already a child of %s, skipped", child.ID, parent.ID)
		return
	}
	mode := LinkSoft
	if !forceSoft && len(parent.ChildProblems) == 0 {
		mode = LinkHard
	}
	parent.ChildProblems = append(parent.ChildProblems, ProblemLink{ID: child.ID, Mode: mode})
	if child.Parent == "" {
		child.Parent = parent.ID
	}
	if child.Mode == "" {
		child.Mode = mode
	}
}

func (g *Graph) appendSolution(parent, child *Node) {
	if parent.hasSolution(child.ID) {
		g.logger.Warn("solution %s already a child of %s, skipped", child.ID, parent.ID)
		return
	}
	parent.Solutions = append(parent.Solutions, child.ID)
	if child.Parent == "" {
		child.Parent = parent.ID
	}
	if child.SuccessID == "" {
		child.SuccessID = g.Success
	}
}

// Validate checks the structural invariants: singleton root and terminals,
// legal edges only, no dangling ids, consistent back-pointers, and every
// solution pointing at the unique Success.
func (g *Graph) Validate() error {
	if err := g.validateSingletons(); err != nil {
		return err
	}
	containers := g.containerIndex()
	for _, id := range g.order {
		if err := g.validateNode(g.nodes[id], containers); err != nil {
			return err
		}
	}
	return nil
}

// containerIndex maps each node id to the ids of the nodes whose child lists
// carry it.
func (g *Graph) containerIndex() map[string]map[string]bool {
	idx := make(map[string]map[string]bool, len(g.nodes))
	add := func(child, parent string) {
		if idx[child] == nil {
			idx[child] = make(map[string]bool)
		}
		idx[child][parent] = true
	}
	for _, id := range g.order {
		n := g.nodes[id]
		for _, fid := range n.ChildFeatures {
			add(fid, id)
		}
		for _, p := range n.ChildProblems {
			add(p.ID, id)
		}
		for _, sid := range n.Solutions {
			add(sid, id)
		}
	}
	return idx
}

func (g *Graph) validateSingletons() error {
	for kind, want := range map[Kind]string{
		KindOrigin:  g.Root,
		KindSuccess: g.Success,
		KindFailure: g.Failure,
	} {
		all := g.AllOfKind(kind)
		if len(all) != 1 || all[0].ID != want {
			return fmt.Errorf("%w: expected exactly one %s node with id %s", ErrCorruptGraph, kind, want)
		}
	}
	return nil
}

func (g *Graph) validateNode(n *Node, containers map[string]map[string]bool) error {
	child := func(id string, allowed ...Kind) (*Node, error) {
		c, ok := g.nodes[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s references missing node %s", ErrCorruptGraph, n.ID, id)
		}
		for _, k := range allowed {
			if c.Kind == k {
				return c, nil
			}
		}
		return nil, fmt.Errorf("%w: %s has illegal child %s (%s)", ErrCorruptGraph, n.ID, id, c.Kind)
	}
	// a shared feature or problem keeps the first parent it was linked
	// under; the recorded parent must itself list the child
	backPointer := func(c *Node) error {
		if c.Parent == n.ID || containers[c.ID][c.Parent] {
			return nil
		}
		return fmt.Errorf("%w: %s lists %s as a child but its parent field is %q",
			ErrCorruptGraph, n.ID, c.ID, c.Parent)
	}

	switch n.Kind {
	case KindOrigin, KindFeature, KindProblem:
		for _, id := range n.ChildFeatures {
			c, err := child(id, KindFeature)
			if err != nil {
				return err
			}
			if err := backPointer(c); err != nil {
				return err
			}
		}
	}
	if n.Kind != KindFeature && len(n.ChildProblems) > 0 {
		return fmt.Errorf("%w: %s (%s) carries child problems", ErrCorruptGraph, n.ID, n.Kind)
	}
	for _, p := range n.ChildProblems {
		c, err := child(p.ID, KindProblem)
		if err != nil {
			return err
		}
		if err := backPointer(c); err != nil {
			return err
		}
	}
	if n.Kind != KindProblem && len(n.Solutions) > 0 {
		return fmt.Errorf("%w: %s (%s) carries solutions", ErrCorruptGraph, n.ID, n.Kind)
	}
	for _, id := range n.Solutions {
		c, err := child(id, KindSolution)
		if err != nil {
			return err
		}
		if c.Parent != n.ID {
			return fmt.Errorf("%w: solution %s does not point back at %s", ErrCorruptGraph, c.ID, n.ID)
		}
	}
	if n.Kind == KindSolution && n.SuccessID != g.Success {
		return fmt.Errorf("%w: solution %s targets %q instead of the unique success node", ErrCorruptGraph, n.ID, n.SuccessID)
	}
	if n.Parent != "" {
		if _, ok := g.nodes[n.Parent]; !ok {
			return fmt.Errorf("%w: %s references missing parent %s", ErrCorruptGraph, n.ID, n.Parent)
		}
	}
	return nil
}
