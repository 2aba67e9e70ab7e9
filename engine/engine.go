package engine

import (
	"context"
	"fmt"

	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/log"
	"github.com/mzyy1001/AI-Custom-service/oracle"
)

// FailureSentinel is the out-of-band next step a behavior returns to abort
// the session. The engine maps it onto the graph's singleton Failure node;
// it is never stored in the graph itself.
const FailureSentinel = "FAILURE"

// AskFunc is the interaction capability: it puts a prompt in front of the
// user and returns the raw reply. Production wires it to real I/O; training
// binds it to AlwaysNo so the builder never blocks.
type AskFunc func(ctx context.Context, prompt string) (string, error)

// AlwaysNo is the training binding of the interaction capability.
func AlwaysNo(context.Context, string) (string, error) {
	return "no", nil
}

// Terminal names how a session ended.
type Terminal string

const (
	TerminalSuccess       Terminal = "Success"
	TerminalFailure       Terminal = "Failure"
	TerminalNoCurrentNode Terminal = "no_current_node"
)

// StepResult is the outcome of a single engine step.
type StepResult struct {
	// Done is set when the session ended; Terminal then names the outcome.
	Done     bool
	Terminal Terminal

	// NodeID is the node the session sits on after the step.
	NodeID string

	// AwaitingInput is set when the current node cannot decide from the
	// dialog so far and needs another user utterance; Question carries a
	// clarifying prompt for the outer chat layer.
	AwaitingInput bool
	Question      string
}

// NextStep is what a node behavior hands back to the engine: a concrete next
// node id, the FailureSentinel, or a request to stay put and gather more
// dialog.
type NextStep struct {
	Next     string
	Stay     bool
	Question string
}

// NodeBehavior is the per-kind traversal contract.
type NodeBehavior interface {
	Process(ctx context.Context, e *Engine, n *graph.Node) (NextStep, error)
}

// nodeState is the session-local view of one node. It lives in the engine,
// never on the shared graph, so concurrent sessions can share one graph.
type nodeState struct {
	visited           bool
	visitCount        int
	expected          oracle.Answer // AnswerUnsure until observed
	confirmedPositive bool
	resolved          bool
	mode              graph.LinkMode // effective problem mode for this session
}

// Engine drives one diagnostic session over a read-only graph. It is not
// safe for concurrent use; run one engine per session.
type Engine struct {
	graph     *graph.Graph
	oracle    oracle.Oracle
	ask       AskFunc
	logger    log.Logger
	behaviors map[graph.Kind]NodeBehavior

	current string
	dialog  []oracle.Turn
	states  map[string]*nodeState
}

// Option configures an Engine.
type Option func(*Engine)

// WithAsk wires the interaction capability.
func WithAsk(ask AskFunc) Option {
	return func(e *Engine) { e.ask = ask }
}

// WithLogger overrides the engine's logger.
func WithLogger(l log.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine over the given graph and oracle. The interaction
// capability defaults to AlwaysNo until WithAsk wires a real one.
func New(g *graph.Graph, o oracle.Oracle, opts ...Option) *Engine {
	e := &Engine{
		graph:  g,
		oracle: o,
		ask:    AlwaysNo,
		logger: log.Default(),
		states: make(map[string]*nodeState),
	}
	e.behaviors = map[graph.Kind]NodeBehavior{
		graph.KindOrigin:   originBehavior{},
		graph.KindFeature:  featureBehavior{},
		graph.KindProblem:  problemBehavior{},
		graph.KindSolution: solutionBehavior{},
		graph.KindSuccess:  terminalBehavior{},
		graph.KindFailure:  terminalBehavior{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start resets the session: fresh side-table, a dialog log seeded with the
// user's main issue, and the cursor on the Origin root.
func (e *Engine) Start(mainIssue string) {
	e.states = make(map[string]*nodeState)
	e.dialog = nil
	if mainIssue != "" {
		e.AddUserTurn(mainIssue)
	}
	e.current = e.graph.Root
}

// Current returns the id of the node the session sits on, empty after the
// session ended.
func (e *Engine) Current() string {
	return e.current
}

// Dialog returns the session's dialog log.
func (e *Engine) Dialog() []oracle.Turn {
	out := make([]oracle.Turn, len(e.dialog))
	copy(out, e.dialog)
	return out
}

// AddUserTurn appends a user utterance to the dialog log.
func (e *Engine) AddUserTurn(content string) {
	e.dialog = append(e.dialog, oracle.Turn{Role: oracle.RoleUser, Content: content})
}

// AddAssistantTurn appends an assistant clarification to the dialog log.
func (e *Engine) AddAssistantTurn(content string) {
	e.dialog = append(e.dialog, oracle.Turn{Role: oracle.RoleAssistant, Content: content})
}

// state returns the session-local state for a node, creating it on first use.
func (e *Engine) state(id string) *nodeState {
	st, ok := e.states[id]
	if !ok {
		st = &nodeState{}
		e.states[id] = st
	}
	return st
}

// Visited reports whether the session has entered the node.
func (e *Engine) Visited(id string) bool {
	st, ok := e.states[id]
	return ok && st.visited
}

// Step advances the session by one node. An optional new user utterance is
// appended to the dialog log before the current node's behavior runs.
//
// Sessions never surface oracle trouble as an error: behaviors retry once
// and then fall back to their deterministic rules. The only errors returned
// here are context cancellation and interaction failures.
func (e *Engine) Step(ctx context.Context, input string) (StepResult, error) {
	if input != "" {
		e.AddUserTurn(input)
	}
	if e.current == "" {
		return StepResult{Done: true, Terminal: TerminalNoCurrentNode}, nil
	}
	n, ok := e.graph.Get(e.current)
	if !ok {
		// A cursor pointing at nothing has no destination; converge on Failure.
		e.logger.Error("current node %s not in graph, forcing failure", e.current)
		e.current = e.graph.Failure
		return StepResult{NodeID: e.current}, nil
	}

	step, err := e.behaviors[n.Kind].Process(ctx, e, n)
	if err != nil {
		return StepResult{}, err
	}

	if n.Kind == graph.KindSuccess || n.Kind == graph.KindFailure {
		e.current = ""
		return StepResult{Done: true, Terminal: Terminal(n.Kind), NodeID: n.ID}, nil
	}

	switch {
	case step.Stay:
		return StepResult{NodeID: n.ID, AwaitingInput: true, Question: step.Question}, nil
	case step.Next == FailureSentinel:
		e.current = e.graph.Failure
	default:
		if _, ok := e.graph.Get(step.Next); !ok {
			e.logger.Warn("node %s produced no destination (%q), forcing failure", n.ID, step.Next)
			e.current = e.graph.Failure
		} else {
			e.current = step.Next
		}
	}
	return StepResult{NodeID: e.current}, nil
}

// Run drives the session to a terminal, asking the user through the
// interaction capability whenever a node needs more dialog. The number of
// steps is bounded; a session that somehow fails to settle is forced onto
// the Failure terminal.
func (e *Engine) Run(ctx context.Context) (Terminal, error) {
	input := ""
	for i := 0; i < e.graph.Len()*8+16; i++ {
		res, err := e.Step(ctx, input)
		if err != nil {
			return "", err
		}
		input = ""
		if res.Done {
			return res.Terminal, nil
		}
		if res.AwaitingInput {
			reply, err := e.ask(ctx, res.Question)
			if err != nil {
				return "", fmt.Errorf("interaction: %w", err)
			}
			e.AddAssistantTurn(res.Question)
			input = reply
		}
	}
	e.logger.Error("session exceeded its step bound, forcing failure")
	e.current = ""
	return TerminalFailure, nil
}

// yesNo asks the oracle a dialog-grounded question, retrying once on
// unavailability and degrading to "no" when the oracle stays unreachable.
func (e *Engine) yesNo(ctx context.Context, question string) oracle.Answer {
	ans, err := e.oracle.YesNo(ctx, question, e.dialog)
	if err != nil {
		ans, err = e.oracle.YesNo(ctx, question, e.dialog)
	}
	if err != nil {
		e.logger.Warn("yes/no oracle unavailable for %q, assuming no: %v", question, err)
		return oracle.AnswerNo
	}
	return ans
}

// pickChild selects among unvisited candidate nodes, falling back to the
// first candidate when the oracle is unavailable or abstains.
func (e *Engine) pickChild(ctx context.Context, current string, candidates []*graph.Node) *graph.Node {
	if len(candidates) == 1 {
		return candidates[0]
	}
	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.ID + ":" + c.Description
	}
	idx, err := e.oracle.PickChild(ctx, current, labels, e.dialog)
	if err != nil {
		idx, err = e.oracle.PickChild(ctx, current, labels, e.dialog)
	}
	if err != nil || idx < 0 || idx >= len(candidates) {
		if err != nil {
			e.logger.Warn("child routing unavailable, taking first unvisited: %v", err)
		}
		return candidates[0]
	}
	return candidates[idx]
}

// unvisited filters ids down to nodes this session has not entered yet.
func (e *Engine) unvisited(ids []string) []*graph.Node {
	var out []*graph.Node
	for _, id := range ids {
		if e.Visited(id) {
			continue
		}
		if n, ok := e.graph.Get(id); ok {
			out = append(out, n)
		}
	}
	return out
}
