package engine

import (
	"context"
	"fmt"

	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/oracle"
)

// originBehavior starts a session: route into the next unvisited child
// feature, or give up when every branch has been tried.
type originBehavior struct{}

func (originBehavior) Process(ctx context.Context, e *Engine, n *graph.Node) (NextStep, error) {
	st := e.state(n.ID)
	st.visited = true
	st.visitCount++

	candidates := e.unvisited(n.ChildFeatures)
	if len(candidates) == 0 {
		e.logger.Info("origin exhausted all child features")
		return NextStep{Next: FailureSentinel}, nil
	}
	target := e.pickChild(ctx, n.Description, candidates)
	e.logger.Debug("origin → feature %s", target.ID)
	return NextStep{Next: target.ID}, nil
}

// featureBehavior answers "does this observable feature hold?" against the
// dialog log. The expected state is memoized per session: once observed it is
// never re-queried; while it stays unknown the session holds position and
// gathers more dialog.
type featureBehavior struct{}

func (featureBehavior) Process(ctx context.Context, e *Engine, n *graph.Node) (NextStep, error) {
	st := e.state(n.ID)
	st.visited = true
	st.visitCount++

	if st.expected == oracle.AnswerUnsure {
		st.expected = e.yesNo(ctx, n.Description)
	}

	switch st.expected {
	case oracle.AnswerYes:
		st.confirmedPositive = true
		e.logger.Debug("feature %s holds, descending", n.ID)
		return nextChild(ctx, e, n, st), nil
	case oracle.AnswerNo:
		e.logger.Debug("feature %s does not hold, returning to %s", n.ID, n.Parent)
		return NextStep{Next: n.Parent}, nil
	default:
		question, err := e.oracle.FollowupQuestion(ctx, n.Description, e.Dialog())
		if err != nil {
			e.logger.Warn("followup question unavailable: %v", err)
		}
		return NextStep{Stay: true, Question: question}, nil
	}
}

// nextChild descends from a confirmed feature: sibling features first (LLM
// routed), then the first unvisited problem in insertion order, carrying the
// stored link mode into the problem's session mode. On exhaustion: Failure
// under the Origin, Failure while the feature still reads positive, else back
// to the parent with the expected state cleared to negative.
func nextChild(ctx context.Context, e *Engine, n *graph.Node, st *nodeState) NextStep {
	if candidates := e.unvisited(n.ChildFeatures); len(candidates) > 0 {
		target := e.pickChild(ctx, n.Description, candidates)
		e.logger.Debug("feature %s → child feature %s", n.ID, target.ID)
		return NextStep{Next: target.ID}
	}

	for _, link := range n.ChildProblems {
		if e.Visited(link.ID) {
			continue
		}
		e.state(link.ID).mode = link.Mode
		e.logger.Debug("feature %s → problem %s (%s)", n.ID, link.ID, link.Mode)
		return NextStep{Next: link.ID}
	}

	parent, ok := e.graph.Get(n.Parent)
	if !ok || parent.Kind == graph.KindOrigin {
		return NextStep{Next: FailureSentinel}
	}
	if st.expected == oracle.AnswerYes {
		return NextStep{Next: FailureSentinel}
	}
	st.expected = oracle.AnswerNo
	return NextStep{Next: parent.ID}
}

// problemBehavior works through a latent problem: solutions in insertion
// order, then sub-features, then the hard/soft exit. A revisited problem
// first checks whether the parent symptom has disappeared in the meantime.
type problemBehavior struct{}

func (problemBehavior) Process(ctx context.Context, e *Engine, n *graph.Node) (NextStep, error) {
	st := e.state(n.ID)
	if st.visited {
		resolved, err := problemResolved(ctx, e, n)
		if err != nil {
			return NextStep{}, err
		}
		if resolved {
			st.resolved = true
			e.logger.Debug("problem %s resolved, returning to %s", n.ID, n.Parent)
			return NextStep{Next: n.Parent}, nil
		}
	}
	st.visited = true
	st.visitCount++

	for _, sid := range n.Solutions {
		if !e.Visited(sid) {
			e.logger.Debug("problem %s → solution %s", n.ID, sid)
			return NextStep{Next: sid}, nil
		}
	}
	for _, fid := range n.ChildFeatures {
		if !e.Visited(fid) {
			e.logger.Debug("problem %s → feature %s", n.ID, fid)
			return NextStep{Next: fid}, nil
		}
	}

	mode := st.mode
	if mode == "" {
		mode = n.Mode
	}
	if mode == graph.LinkHard {
		e.logger.Info("hard problem %s has no options left", n.ID)
		return NextStep{Next: FailureSentinel}, nil
	}
	e.logger.Debug("soft problem %s exhausted, returning to %s", n.ID, n.Parent)
	return NextStep{Next: n.Parent}, nil
}

// problemResolved asks the user whether the parent symptom has disappeared
// and grounds the verdict on the grown dialog; a plain yes/no reply decides
// directly.
func problemResolved(ctx context.Context, e *Engine, n *graph.Node) (bool, error) {
	parent, ok := e.graph.Get(n.Parent)
	if !ok {
		return false, nil
	}
	prompt := fmt.Sprintf("Has the symptom %q disappeared?", parent.Description)
	reply, err := e.ask(ctx, prompt)
	if err != nil {
		return false, fmt.Errorf("interaction: %w", err)
	}
	e.AddAssistantTurn(prompt)
	e.AddUserTurn(reply)
	switch oracle.ParseYesNo(reply) {
	case oracle.AnswerYes:
		return true, nil
	case oracle.AnswerNo:
		return false, nil
	}
	ans := e.yesNo(ctx, fmt.Sprintf("The symptom %q has disappeared.", parent.Description))
	return ans == oracle.AnswerYes, nil
}

// solutionBehavior puts a concrete fix in front of the user. Yes moves to the
// unique Success terminal; no (and unsure, which counts as no here) hands
// control back to the parent problem for its next option.
type solutionBehavior struct{}

func (solutionBehavior) Process(ctx context.Context, e *Engine, n *graph.Node) (NextStep, error) {
	st := e.state(n.ID)
	st.visited = true
	st.visitCount++

	prompt := fmt.Sprintf("Please try this: %s. Did it resolve the issue?", n.Description)
	reply, err := e.ask(ctx, prompt)
	if err != nil {
		return NextStep{}, fmt.Errorf("interaction: %w", err)
	}
	e.AddAssistantTurn(prompt)
	e.AddUserTurn(reply)

	ans := oracle.ParseYesNo(reply)
	if ans == oracle.AnswerUnsure {
		ans = e.yesNo(ctx, fmt.Sprintf("Applying %q resolved the issue.", n.Description))
	}
	if ans == oracle.AnswerYes {
		target := n.SuccessID
		if target == "" {
			target = e.graph.Success
		}
		e.logger.Info("solution %s confirmed", n.ID)
		return NextStep{Next: target}, nil
	}
	e.logger.Debug("solution %s did not help, returning to %s", n.ID, n.Parent)
	return NextStep{Next: n.Parent}, nil
}

// terminalBehavior covers Success and Failure; the engine ends the session
// when the cursor reaches either.
type terminalBehavior struct{}

func (terminalBehavior) Process(_ context.Context, e *Engine, n *graph.Node) (NextStep, error) {
	st := e.state(n.ID)
	st.visited = true
	st.visitCount++
	e.logger.Info("session terminal: %s (%s)", n.Kind, n.Description)
	return NextStep{}, nil
}
