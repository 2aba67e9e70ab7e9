package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/mzyy1001/AI-Custom-service/log"
)

// Document is the serialized form of a Graph: three singleton ids plus a flat
// id→record table. The format is written indented so trained trees diff well
// under version control.
type Document struct {
	RootID    string                `json:"root_id"`
	SuccessID string                `json:"success_id"`
	FailureID string                `json:"failure_id"`
	Nodes     map[string]NodeRecord `json:"nodes"`
}

// NodeRecord is one node in a Document. Fields are kind-specific and omitted
// when empty; unknown keys in stored documents are tolerated on load.
type NodeRecord struct {
	Type          string       `json:"type"`
	Description   string       `json:"description"`
	ChildFeatures []string     `json:"child_features,omitempty"`
	ChildProblems []ProblemRef `json:"child_problems,omitempty"`
	ParentNode    string       `json:"parent_node,omitempty"`
	Solutions     []string     `json:"solutions,omitempty"`
	ParentFeature string       `json:"parent_feature,omitempty"`
	ParentProblem string       `json:"parent_problem,omitempty"`
	SuccessNode   string       `json:"success_node,omitempty"`

	// ExpectedState appears in trees written by an older builder that stored
	// a pre-judged feature state. It is accepted and ignored: expected states
	// are inferred per session at run time.
	ExpectedState *bool `json:"expected_state,omitempty"`
}

// ProblemRef serializes a Feature→Problem edge as an [id, link_mode] pair.
type ProblemRef struct {
	ID   string
	Mode LinkMode
}

// MarshalJSON renders the pair as a two-element array.
func (r ProblemRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]string{r.ID, string(r.Mode)})
}

// UnmarshalJSON accepts [id] or [id, mode]; a missing mode defaults to soft.
func (r *ProblemRef) UnmarshalJSON(data []byte) error {
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) == 0 {
		return fmt.Errorf("child problem entry must carry an id")
	}
	r.ID = pair[0]
	r.Mode = LinkSoft
	if len(pair) > 1 {
		r.Mode = ParseLinkMode(pair[1])
	}
	return nil
}

// Document renders the graph into its serializable form.
func (g *Graph) Document() *Document {
	doc := &Document{
		RootID:    g.Root,
		SuccessID: g.Success,
		FailureID: g.Failure,
		Nodes:     make(map[string]NodeRecord, len(g.nodes)),
	}
	for _, id := range g.order {
		n := g.nodes[id]
		rec := NodeRecord{
			Type:        string(n.Kind),
			Description: n.Description,
		}
		switch n.Kind {
		case KindOrigin:
			rec.ChildFeatures = append(rec.ChildFeatures, n.ChildFeatures...)
		case KindFeature:
			rec.ParentNode = n.Parent
			rec.ChildFeatures = append(rec.ChildFeatures, n.ChildFeatures...)
			for _, p := range n.ChildProblems {
				rec.ChildProblems = append(rec.ChildProblems, ProblemRef{ID: p.ID, Mode: p.Mode})
			}
		case KindProblem:
			rec.ParentFeature = n.Parent
			rec.Solutions = append(rec.Solutions, n.Solutions...)
			rec.ChildFeatures = append(rec.ChildFeatures, n.ChildFeatures...)
		case KindSolution:
			rec.ParentProblem = n.Parent
			rec.SuccessNode = n.SuccessID
		}
		doc.Nodes[id] = rec
	}
	return doc
}

// FromDocument rebuilds a graph from its serialized form. The load is
// two-pass: every node is instantiated first, then the child lists and
// back-pointers are wired. A dangling reference or unknown kind fails with
// ErrCorruptGraph.
func FromDocument(doc *Document, opts ...Option) (*Graph, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrCorruptGraph)
	}
	g := &Graph{
		Root:    doc.RootID,
		Success: doc.SuccessID,
		Failure: doc.FailureID,
		nodes:   make(map[string]*Node, len(doc.Nodes)),
	}
	g.logger = log.Default()
	for _, opt := range opts {
		opt(g)
	}

	// Pass 1: instantiate. The three singletons come first, the rest in id
	// order so repeated loads see a stable arena order.
	ids := make([]string, 0, len(doc.Nodes))
	for id := range doc.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ordered := make([]string, 0, len(ids))
	for _, id := range []string{doc.RootID, doc.SuccessID, doc.FailureID} {
		if _, ok := doc.Nodes[id]; !ok {
			return nil, fmt.Errorf("%w: missing singleton node %s", ErrCorruptGraph, id)
		}
		ordered = append(ordered, id)
	}
	for _, id := range ids {
		if id != doc.RootID && id != doc.SuccessID && id != doc.FailureID {
			ordered = append(ordered, id)
		}
	}
	for _, id := range ordered {
		rec := doc.Nodes[id]
		kind, err := ParseKind(rec.Type)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		if err := g.Insert(NewNode(id, kind, rec.Description)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptGraph, err)
		}
	}

	// Pass 2: wire children and back-pointers.
	for _, id := range ordered {
		rec := doc.Nodes[id]
		n := g.nodes[id]
		resolve := func(ref string) (*Node, error) {
			c, ok := g.nodes[ref]
			if !ok {
				return nil, fmt.Errorf("%w: %s references missing node %s", ErrCorruptGraph, id, ref)
			}
			return c, nil
		}
		for _, fid := range rec.ChildFeatures {
			c, err := resolve(fid)
			if err != nil {
				return nil, err
			}
			n.ChildFeatures = append(n.ChildFeatures, c.ID)
		}
		for _, p := range rec.ChildProblems {
			c, err := resolve(p.ID)
			if err != nil {
				return nil, err
			}
			n.ChildProblems = append(n.ChildProblems, ProblemLink{ID: c.ID, Mode: p.Mode})
			if c.Mode == "" {
				c.Mode = p.Mode
			}
		}
		for _, sid := range rec.Solutions {
			c, err := resolve(sid)
			if err != nil {
				return nil, err
			}
			n.Solutions = append(n.Solutions, c.ID)
		}
		switch n.Kind {
		case KindFeature:
			n.Parent = rec.ParentNode
		case KindProblem:
			n.Parent = rec.ParentFeature
		case KindSolution:
			n.Parent = rec.ParentProblem
			n.SuccessID = rec.SuccessNode
			if n.SuccessID == "" {
				n.SuccessID = g.Success
			}
		}
		if n.Parent != "" {
			if _, err := resolve(n.Parent); err != nil {
				return nil, err
			}
		}
	}

	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// Save writes the graph document to path as indented JSON.
func Save(g *Graph, path string) error {
	data, err := json.MarshalIndent(g.Document(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal graph document: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write graph document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("write graph document: %w", err)
	}
	return nil
}

// Load reads a graph document from path.
func Load(path string, opts ...Option) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptGraph, err)
	}
	return FromDocument(&doc, opts...)
}
