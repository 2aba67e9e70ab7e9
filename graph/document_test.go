package graph

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSampleGraph wires O → F1 → {P1(hard) → S1, P2(soft) → S2} plus a
// nested feature under P1.
func buildSampleGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	nodes := []*Node{
		NewNode("F_1", KindFeature, "robot won't boot"),
		NewNode("P_1", KindProblem, "low battery"),
		NewNode("P_2", KindProblem, "AP offline"),
		NewNode("S_1", KindSolution, "manually charge the robot"),
		NewNode("S_2", KindSolution, "reseat the antennas"),
		NewNode("F_2", KindFeature, "charger LED stays dark"),
	}
	for _, n := range nodes {
		require.NoError(t, g.Insert(n))
	}
	require.NoError(t, g.Connect(RootID, "F_1"))
	require.NoError(t, g.Connect("F_1", "P_1"))
	require.NoError(t, g.Connect("F_1", "P_2"))
	require.NoError(t, g.Connect("P_1", "S_1"))
	require.NoError(t, g.Connect("P_2", "S_2"))
	require.NoError(t, g.Connect("P_1", "F_2"))
	require.NoError(t, g.Connect("S_1", SuccessID))
	require.NoError(t, g.Connect("S_2", SuccessID))
	require.NoError(t, g.Validate())
	return g
}

func TestDocumentRoundTrip(t *testing.T) {
	g := buildSampleGraph(t)

	doc := g.Document()
	loaded, err := FromDocument(doc)
	require.NoError(t, err)

	// ids are stable: the reloaded document must be structurally identical
	assert.Equal(t, doc, loaded.Document())
}

func TestSaveLoadRoundTrip(t *testing.T) {
	g := buildSampleGraph(t)
	path := filepath.Join(t.TempDir(), "tree.json")

	require.NoError(t, Save(g, path))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, g.Document(), loaded.Document())

	f1, ok := loaded.Get("F_1")
	require.True(t, ok)
	assert.Equal(t, RootID, f1.Parent)
	require.Len(t, f1.ChildProblems, 2)
	assert.Equal(t, LinkHard, f1.ChildProblems[0].Mode)
	assert.Equal(t, LinkSoft, f1.ChildProblems[1].Mode)

	p1, ok := loaded.Get("P_1")
	require.True(t, ok)
	assert.Equal(t, LinkHard, p1.Mode)

	s1, ok := loaded.Get("S_1")
	require.True(t, ok)
	assert.Equal(t, SuccessID, s1.SuccessID)
}

func TestLoadRejectsDanglingReference(t *testing.T) {
	g := buildSampleGraph(t)
	doc := g.Document()
	rec := doc.Nodes["F_1"]
	rec.ChildFeatures = append(rec.ChildFeatures, "F_missing")
	doc.Nodes["F_1"] = rec

	_, err := FromDocument(doc)
	assert.ErrorIs(t, err, ErrCorruptGraph)
}

func TestLoadRejectsStaleParentPointer(t *testing.T) {
	g := buildSampleGraph(t)
	doc := g.Document()

	// P_2 is a child of F_1 but its parent field claims F_2, which does not
	// list it; a hand-edited tree like this must not load
	rec := doc.Nodes["P_2"]
	rec.ParentFeature = "F_2"
	doc.Nodes["P_2"] = rec

	_, err := FromDocument(doc)
	assert.ErrorIs(t, err, ErrCorruptGraph)
}

func TestLoadRejectsUnknownKind(t *testing.T) {
	g := buildSampleGraph(t)
	doc := g.Document()
	rec := doc.Nodes["F_1"]
	rec.Type = "Widget"
	doc.Nodes["F_1"] = rec

	_, err := FromDocument(doc)
	assert.ErrorIs(t, err, ErrCorruptGraph)
}

func TestLoadRejectsMissingSingleton(t *testing.T) {
	g := buildSampleGraph(t)
	doc := g.Document()
	delete(doc.Nodes, SuccessID)

	_, err := FromDocument(doc)
	assert.ErrorIs(t, err, ErrCorruptGraph)
}

func TestLoadToleratesUnknownKeys(t *testing.T) {
	raw := `{
	  "root_id": "ORIGIN",
	  "success_id": "SUCCESS",
	  "failure_id": "FAILURE",
	  "layout_hints": {"zoom": 2},
	  "nodes": {
	    "ORIGIN": {"type": "Origin", "description": "entry", "color": "#7b68ee"},
	    "SUCCESS": {"type": "Success", "description": "done"},
	    "FAILURE": {"type": "Failure", "description": "failed"}
	  }
	}`
	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))
	g, err := FromDocument(&doc)
	require.NoError(t, err)
	assert.Equal(t, 3, g.Len())
}

func TestLoadToleratesExpectedState(t *testing.T) {
	g := buildSampleGraph(t)
	doc := g.Document()
	yes := true
	rec := doc.Nodes["F_1"]
	rec.ExpectedState = &yes
	doc.Nodes["F_1"] = rec

	loaded, err := FromDocument(doc)
	require.NoError(t, err)
	_, ok := loaded.Get("F_1")
	assert.True(t, ok)
}

func TestProblemRefMarshalsAsPair(t *testing.T) {
	data, err := json.Marshal(ProblemRef{ID: "P_1", Mode: LinkHard})
	require.NoError(t, err)
	assert.JSONEq(t, `["P_1","hard"]`, string(data))

	var ref ProblemRef
	require.NoError(t, json.Unmarshal([]byte(`["P_2"]`), &ref))
	assert.Equal(t, "P_2", ref.ID)
	assert.Equal(t, LinkSoft, ref.Mode, "missing mode defaults to soft")
}

func TestEmptyCorpusGraphRoundTrips(t *testing.T) {
	g := New()
	loaded, err := FromDocument(g.Document())
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Len())
	assert.NoError(t, loaded.Validate())
}
