package train

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mzyy1001/AI-Custom-service/graph"
	"github.com/mzyy1001/AI-Custom-service/log"
	"github.com/mzyy1001/AI-Custom-service/oracle"
)

// Descriptions of features the builder synthesizes when a segment produces a
// problem or solution with no feature to hang it under.
const (
	aggregateFeatureDesc = "aggregated fault context"
	solutionFeatureDesc  = "reported fix without a matching symptom"
)

// Builder grows a diagnostic graph from fault-to-fix chains. It is the
// graph's only writer; one builder per graph.
type Builder struct {
	graph  *graph.Graph
	oracle oracle.Oracle
	logger log.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger overrides the builder's logger.
func WithLogger(l log.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// New creates a builder over the given graph and oracle.
func New(g *graph.Graph, o oracle.Oracle, opts ...Option) *Builder {
	b := &Builder{
		graph:  g,
		oracle: o,
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SaveFunc persists the graph at a checkpoint. processed counts segments
// already trained out of total.
type SaveFunc func(g *graph.Graph, processed, total int) error

// Run trains every segment in order, persisting through save every ⌈5%⌉ of
// the corpus and once at the end. The cursor resets to the root between
// segments.
func (b *Builder) Run(ctx context.Context, segments [][]string, save SaveFunc) error {
	total := len(segments)
	if total == 0 {
		if save != nil {
			return save(b.graph, 0, 0)
		}
		return nil
	}
	checkpoint := (total + 19) / 20
	if checkpoint < 1 {
		checkpoint = 1
	}
	for i, segment := range segments {
		b.logger.Info("training segment %d/%d", i+1, total)
		if err := b.TrainSegment(ctx, segment); err != nil {
			return fmt.Errorf("segment %d: %w", i+1, err)
		}
		if save != nil && ((i+1)%checkpoint == 0 || i+1 == total) {
			b.logger.Info("progress %d/%d, persisting graph", i+1, total)
			if err := save(b.graph, i+1, total); err != nil {
				return fmt.Errorf("checkpoint after segment %d: %w", i+1, err)
			}
		}
	}
	return nil
}

// TrainSegment splices one fault-to-fix chain into the graph. The first
// non-empty line is always treated as a feature; later lines are classified,
// matched against existing nodes locally then globally, and reused or
// inserted under the moving cursor.
func (b *Builder) TrainSegment(ctx context.Context, lines []string) error {
	current, _ := b.graph.Get(b.graph.Root)
	var lastProblem *graph.Node
	first := true

	for _, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		label := oracle.LabelFeature
		if first {
			first = false
		} else {
			var err error
			label, err = retry1(func() (oracle.Label, error) { return b.oracle.Classify(ctx, line) })
			if err != nil {
				return fmt.Errorf("classify %q: %w", line, err)
			}
		}
		b.logger.Debug("line %q → %s (cursor %s)", line, label, current.ID)

		var err error
		switch label {
		case oracle.LabelFeature:
			current, err = b.spliceFeature(ctx, current, line)
			lastProblem = nil
		case oracle.LabelProblem:
			current, err = b.spliceProblem(ctx, current, line)
			if err == nil {
				lastProblem = current
			}
		case oracle.LabelSolution:
			current, err = b.spliceSolution(ctx, current, lastProblem, line)
		default:
			// non-diagnostic chatter is ignored
		}
		if err != nil {
			return fmt.Errorf("line %q: %w", line, err)
		}
	}
	return nil
}

// spliceFeature reuses a matching child feature, then a globally equivalent
// feature, and otherwise inserts a fresh one under the cursor.
func (b *Builder) spliceFeature(ctx context.Context, current *graph.Node, line string) (*graph.Node, error) {
	children := b.unpackFeatures(current)
	if len(children) > 0 {
		idx, err := retry1(func() (int, error) { return b.oracle.ChooseBest(ctx, line, labels(children)) })
		if err != nil {
			return nil, err
		}
		if idx != oracle.NoCandidate {
			chosen := children[idx]
			b.logger.Debug("reusing child feature %s for %q", chosen.ID, line)
			return chosen, nil
		}
	}

	if all := b.graph.AllOfKind(graph.KindFeature); len(all) > 0 {
		idx, err := retry1(func() (int, error) { return b.oracle.ChooseBest(ctx, line, labels(all)) })
		if err != nil {
			return nil, err
		}
		if idx != oracle.NoCandidate {
			chosen := all[idx]
			same, err := retry1(func() (bool, error) { return b.oracle.Equivalent(ctx, chosen.Description, line) })
			if err != nil {
				return nil, err
			}
			if same {
				if err := b.graph.Connect(current.ID, chosen.ID); err != nil {
					b.logger.Warn("cannot link existing feature %s under %s: %v", chosen.ID, current.ID, err)
				}
				b.logger.Debug("reusing global feature %s for %q", chosen.ID, line)
				return chosen, nil
			}
		}
	}

	feat := graph.NewNode(b.graph.NewID("F"), graph.KindFeature, line)
	if err := b.graph.Insert(feat); err != nil {
		return nil, err
	}
	if err := b.connectOrReroot(current.ID, feat.ID); err != nil {
		return nil, err
	}
	b.logger.Debug("new feature %s %q", feat.ID, line)
	return feat, nil
}

// spliceProblem rewinds the cursor to a feature context, canonicalizes the
// line, and reuses or inserts the problem there.
func (b *Builder) spliceProblem(ctx context.Context, current *graph.Node, line string) (*graph.Node, error) {
	feature, err := b.featureContext(current)
	if err != nil {
		return nil, err
	}

	desc, err := retry1(func() (string, error) { return b.oracle.CanonicalizeProblem(ctx, line) })
	if err != nil {
		return nil, err
	}

	local := b.unpackProblems(feature)
	if len(local) > 0 {
		idx, err := retry1(func() (int, error) { return b.oracle.ChooseBest(ctx, desc, labels(local)) })
		if err != nil {
			return nil, err
		}
		if idx != oracle.NoCandidate {
			b.logger.Debug("reusing child problem %s for %q", local[idx].ID, desc)
			return local[idx], nil
		}
	}

	if all := b.graph.AllOfKind(graph.KindProblem); len(all) > 0 {
		idx, err := retry1(func() (int, error) { return b.oracle.ChooseBest(ctx, desc, labels(all)) })
		if err != nil {
			return nil, err
		}
		if idx != oracle.NoCandidate {
			chosen := all[idx]
			same, err := retry1(func() (bool, error) { return b.oracle.Equivalent(ctx, chosen.Description, desc) })
			if err != nil {
				return nil, err
			}
			if same {
				if err := b.graph.Connect(feature.ID, chosen.ID, graph.WithSoftLink()); err != nil {
					b.logger.Warn("cannot link existing problem %s under %s: %v", chosen.ID, feature.ID, err)
				}
				b.logger.Debug("reusing global problem %s for %q", chosen.ID, desc)
				return chosen, nil
			}
		}
	}

	prob := graph.NewNode(b.graph.NewID("P"), graph.KindProblem, desc)
	if err := b.graph.Insert(prob); err != nil {
		return nil, err
	}
	if err := b.graph.Connect(feature.ID, prob.ID); err != nil {
		return nil, err
	}
	b.logger.Debug("new problem %s %q", prob.ID, desc)
	return prob, nil
}

// spliceSolution finds the problem a solution line belongs to — the cursor's
// problem, the segment's last problem, or a picked/synthesized one in the
// surrounding feature context — then reuses or inserts the solution there.
func (b *Builder) spliceSolution(ctx context.Context, current, lastProblem *graph.Node, line string) (*graph.Node, error) {
	var target *graph.Node

	if current.Kind == graph.KindProblem {
		ans, err := retry1(func() (oracle.Answer, error) {
			return b.oracle.SolutionSolvesProblem(ctx, line, current.Description)
		})
		if err != nil {
			return nil, err
		}
		if ans != oracle.AnswerNo {
			target = current
		}
	}

	if target == nil && lastProblem != nil {
		ans, err := retry1(func() (oracle.Answer, error) {
			return b.oracle.SolutionSolvesProblem(ctx, line, lastProblem.Description)
		})
		if err != nil {
			return nil, err
		}
		if ans == oracle.AnswerYes {
			target = lastProblem
		}
	}

	if target == nil {
		var err error
		target, err = b.problemForSolution(ctx, current, line)
		if err != nil {
			return nil, err
		}
	}

	if sols := b.unpackSolutions(target); len(sols) > 0 {
		idx, err := retry1(func() (int, error) { return b.oracle.ChooseBest(ctx, line, labels(sols)) })
		if err != nil {
			return nil, err
		}
		if idx != oracle.NoCandidate {
			chosen := sols[idx]
			if chosen.SuccessID == "" {
				chosen.SuccessID = b.graph.Success
			}
			b.logger.Debug("reusing solution %s for %q", chosen.ID, line)
			return chosen, nil
		}
	}

	sol := graph.NewNode(b.graph.NewID("S"), graph.KindSolution, line)
	if err := b.graph.Insert(sol); err != nil {
		return nil, err
	}
	if err := b.graph.Connect(target.ID, sol.ID); err != nil {
		return nil, err
	}
	b.logger.Debug("new solution %s %q under %s", sol.ID, line, target.ID)
	return sol, nil
}

// problemForSolution resolves the feature context around the cursor, asks the
// oracle which of its problems the solution fixes, and synthesizes a soft
// problem from the solution when none matches.
func (b *Builder) problemForSolution(ctx context.Context, current *graph.Node, line string) (*graph.Node, error) {
	feature := current
	if feature.Kind == graph.KindProblem {
		if parent, ok := b.graph.Get(feature.Parent); ok {
			feature = parent
		}
	}
	if feature.Kind != graph.KindFeature {
		root, _ := b.graph.Get(b.graph.Root)
		if feats := b.unpackFeatures(root); len(feats) > 0 {
			feature = feats[0]
		} else {
			synth := graph.NewNode(b.graph.NewID("F"), graph.KindFeature, solutionFeatureDesc)
			if err := b.graph.Insert(synth); err != nil {
				return nil, err
			}
			if err := b.graph.Connect(root.ID, synth.ID); err != nil {
				return nil, err
			}
			b.logger.Debug("synthesized feature %s to hold a stray solution", synth.ID)
			feature = synth
		}
	}

	if probs := b.unpackProblems(feature); len(probs) > 0 {
		idx, err := retry1(func() (int, error) { return b.oracle.PickProblemForSolution(ctx, line, labels(probs)) })
		if err != nil {
			return nil, err
		}
		if idx != oracle.NoCandidate {
			return probs[idx], nil
		}
	}

	desc, err := retry1(func() (string, error) { return b.oracle.InferProblemFromSolution(ctx, line) })
	if err != nil {
		return nil, err
	}
	prob := graph.NewNode(b.graph.NewID("P"), graph.KindProblem, desc)
	if err := b.graph.Insert(prob); err != nil {
		return nil, err
	}
	if err := b.graph.Connect(feature.ID, prob.ID, graph.WithSoftLink()); err != nil {
		return nil, err
	}
	b.logger.Debug("synthesized problem %s %q for solution %q", prob.ID, desc, line)
	return prob, nil
}

// featureContext rewinds the cursor to a Feature a problem can hang under:
// a Problem cursor steps back to its parent feature, an Origin cursor drops
// into its first child feature or a synthesized aggregation feature.
func (b *Builder) featureContext(current *graph.Node) (*graph.Node, error) {
	if current.Kind == graph.KindProblem {
		if parent, ok := b.graph.Get(current.Parent); ok {
			current = parent
		}
	}
	if current.Kind == graph.KindFeature {
		return current, nil
	}
	if feats := b.unpackFeatures(current); len(feats) > 0 {
		return feats[0], nil
	}
	synth := graph.NewNode(b.graph.NewID("F"), graph.KindFeature, aggregateFeatureDesc)
	if err := b.graph.Insert(synth); err != nil {
		return nil, err
	}
	if err := b.connectOrReroot(current.ID, synth.ID); err != nil {
		return nil, err
	}
	b.logger.Debug("synthesized aggregation feature %s under %s", synth.ID, current.ID)
	return synth, nil
}

// connectOrReroot links child under parent, re-rooting under the Origin when
// the edge would be illegal.
func (b *Builder) connectOrReroot(parentID, childID string) error {
	err := b.graph.Connect(parentID, childID)
	if err == nil {
		return nil
	}
	var edgeErr *graph.EdgeRuleError
	if !errors.As(err, &edgeErr) {
		return err
	}
	b.logger.Warn("illegal edge %s→%s, attaching under root instead", parentID, childID)
	return b.graph.Connect(b.graph.Root, childID)
}

func (b *Builder) unpackFeatures(n *graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, id := range n.ChildFeatures {
		if c, ok := b.graph.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

func (b *Builder) unpackProblems(n *graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, link := range n.ChildProblems {
		if c, ok := b.graph.Get(link.ID); ok {
			out = append(out, c)
		}
	}
	return out
}

func (b *Builder) unpackSolutions(n *graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, id := range n.Solutions {
		if c, ok := b.graph.Get(id); ok {
			out = append(out, c)
		}
	}
	return out
}

// labels renders nodes as "id:description" candidates for the oracle.
func labels(nodes []*graph.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.ID + ":" + n.Description
	}
	return out
}

// retry1 runs an oracle call, retrying once before giving up.
func retry1[T any](fn func() (T, error)) (T, error) {
	v, err := fn()
	if err != nil {
		v, err = fn()
	}
	return v, err
}
