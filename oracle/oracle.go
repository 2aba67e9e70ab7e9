package oracle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mzyy1001/AI-Custom-service/log"
)

// Label is the coarse classification of a training line.
type Label string

const (
	LabelFeature  Label = "feature"
	LabelProblem  Label = "problem"
	LabelSolution Label = "solution"
	LabelOther    Label = "other"
)

// Answer is a three-valued verdict. Unsure means the dialog carries no
// evidence either way; absence is never treated as negation.
type Answer int

const (
	AnswerUnsure Answer = iota
	AnswerYes
	AnswerNo
)

func (a Answer) String() string {
	switch a {
	case AnswerYes:
		return "yes"
	case AnswerNo:
		return "no"
	default:
		return "unsure"
	}
}

// NoCandidate is returned by the selection operations when no candidate is
// semantically equivalent to the query.
const NoCandidate = -1

// Oracle is the typed LLM capability consumed by the engine and the trainer.
// Every operation is bounded by the oracle's deadline and fails with
// ErrUnavailable on transport problems; malformed replies degrade to
// AnswerUnsure / NoCandidate instead of erroring.
type Oracle interface {
	// Classify labels a training line as feature, problem, solution or other.
	Classify(ctx context.Context, sentence string) (Label, error)

	// CanonicalizeProblem rewrites a noisy line as a stable, searchable
	// problem statement.
	CanonicalizeProblem(ctx context.Context, text string) (string, error)

	// Equivalent reports whether a and b state the same fact. Strict: shared
	// vocabulary, containment or phenomenon-versus-cause pairs do not count.
	Equivalent(ctx context.Context, a, b string) (bool, error)

	// ChooseBest picks the candidate semantically equivalent to query, or
	// NoCandidate. Candidates may be "id:description"; only the description
	// participates in matching.
	ChooseBest(ctx context.Context, query string, candidates []string) (int, error)

	// YesNo answers a yes/no question strictly grounded on the dialog log.
	YesNo(ctx context.Context, question string, dialog []Turn) (Answer, error)

	// PickChild routes among sibling features given the accumulated dialog.
	PickChild(ctx context.Context, current string, candidates []string, dialog []Turn) (int, error)

	// SolutionSolvesProblem reports whether the solution directly addresses
	// the problem.
	SolutionSolvesProblem(ctx context.Context, solution, problem string) (Answer, error)

	// InferProblemFromSolution derives the latent problem a solution is for.
	InferProblemFromSolution(ctx context.Context, solution string) (string, error)

	// PickProblemForSolution selects which candidate problem a solution
	// addresses, or NoCandidate.
	PickProblemForSolution(ctx context.Context, solution string, candidates []string) (int, error)

	// FollowupQuestion produces one minimal clarifying question that would
	// let YesNo decide the given question.
	FollowupQuestion(ctx context.Context, question string, dialog []Turn) (string, error)
}

// DefaultTimeout bounds a single oracle call.
const DefaultTimeout = 30 * time.Second

// LLMOracle implements Oracle on top of a ChatModel.
type LLMOracle struct {
	chat    ChatModel
	cache   Cache
	timeout time.Duration
	logger  log.Logger
}

var _ Oracle = (*LLMOracle)(nil)

// Option configures an LLMOracle.
type Option func(*LLMOracle)

// WithCache attaches a verdict cache for the stable operations.
func WithCache(c Cache) Option {
	return func(o *LLMOracle) { o.cache = c }
}

// WithTimeout overrides the per-call deadline.
func WithTimeout(d time.Duration) Option {
	return func(o *LLMOracle) { o.timeout = d }
}

// WithLogger overrides the oracle's logger.
func WithLogger(l log.Logger) Option {
	return func(o *LLMOracle) { o.logger = l }
}

// New creates an oracle over the given chat backend.
func New(chat ChatModel, opts ...Option) *LLMOracle {
	o := &LLMOracle{
		chat:    chat,
		timeout: DefaultTimeout,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// complete runs one deadline-bounded chat call.
func (o *LLMOracle) complete(ctx context.Context, temperature float64, messages ...Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	reply, err := o.chat.Chat(ctx, messages, temperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func cacheKey(op string, parts ...string) string {
	h := sha256.New()
	h.Write([]byte(op))
	for _, p := range parts {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return op + ":" + hex.EncodeToString(h.Sum(nil))[:32]
}

func (o *LLMOracle) cached(ctx context.Context, key string) (string, bool) {
	if o.cache == nil {
		return "", false
	}
	v, ok, err := o.cache.Get(ctx, key)
	if err != nil {
		o.logger.Warn("oracle cache get failed: %v", err)
		return "", false
	}
	return v, ok
}

func (o *LLMOracle) store(ctx context.Context, key, value string) {
	if o.cache == nil {
		return
	}
	if err := o.cache.Set(ctx, key, value); err != nil {
		o.logger.Warn("oracle cache set failed: %v", err)
	}
}

const classifySystem = `You are a labeler. Tag the given sentence with exactly one of four labels:
- feature: an observable symptom or directly checkable condition (e.g. "the robot will not boot")
- problem: a latent condition that cannot be observed directly, such as a fault cause (e.g. "the battery is dead")
- solution: a concrete action, fix or procedure
- other: anything else
Output only the lowercase label, nothing else.`

// Classify labels a training line.
func (o *LLMOracle) Classify(ctx context.Context, sentence string) (Label, error) {
	key := cacheKey("classify", sentence)
	if v, ok := o.cached(ctx, key); ok {
		return Label(v), nil
	}
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: classifySystem},
		Message{Role: RoleUser, Content: "Sentence: " + sentence},
	)
	if err != nil {
		return LabelOther, err
	}
	label := LabelOther
	switch tag := firstToken(strings.ToLower(raw)); Label(tag) {
	case LabelFeature, LabelProblem, LabelSolution, LabelOther:
		label = Label(tag)
	}
	o.store(ctx, key, string(label))
	return label, nil
}

const canonicalizeSystem = `Condense the input into one short, reusable problem statement.
It must be searchable and operational, without surrounding context. Output a single sentence only.`

// CanonicalizeProblem rewrites a noisy line as a stable problem statement.
func (o *LLMOracle) CanonicalizeProblem(ctx context.Context, text string) (string, error) {
	key := cacheKey("canonicalize", text)
	if v, ok := o.cached(ctx, key); ok {
		return v, nil
	}
	raw, err := o.complete(ctx, 0.2,
		Message{Role: RoleSystem, Content: canonicalizeSystem},
		Message{Role: RoleUser, Content: "Input: " + text},
	)
	if err != nil {
		return "", err
	}
	statement := firstLine(raw)
	if statement == "" {
		statement = text
	}
	o.store(ctx, key, statement)
	return statement, nil
}

const equivalentSystem = `You are a strict equivalence judge. Decide whether the two sentences state the same fact, the same phenomenon or the same step, differing only in wording.
None of the following count as equivalent:
1) sharing domain or platform words while describing different information
2) one statement containing or generalizing the other
3) different objects, parts, metrics, states or actions
4) a phenomenon versus its cause, or a fix versus its problem
If you are not certain they are equivalent, they are not.
Answer with exactly "yes" or "no".`

// Equivalent reports strict same-fact equivalence of a and b.
func (o *LLMOracle) Equivalent(ctx context.Context, a, b string) (bool, error) {
	pair := []string{a, b}
	sort.Strings(pair)
	key := cacheKey("equivalent", pair...)
	if v, ok := o.cached(ctx, key); ok {
		return v == "true", nil
	}
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: equivalentSystem},
		Message{Role: RoleUser, Content: fmt.Sprintf("A: %s\nB: %s", a, b)},
	)
	if err != nil {
		return false, err
	}
	// unsure is not equivalence
	eq := parseYesNo(raw) == AnswerYes
	o.store(ctx, key, fmt.Sprintf("%t", eq))
	return eq, nil
}

const chooseBestSystem = `You are a strict synonym matcher. From the numbered candidates, find the one that is semantically equivalent to the query sentence; if none is equivalent, answer none.
Equivalent means the two sentences state the same fact, phenomenon or step and differ only in wording (synonyms, word order, punctuation, minor phrasing).
None of the following are equivalent:
1) shared domain or platform words but different information (e.g. "the console shows an error code" vs "the console reports the AP offline")
2) containment or super/subset relations
3) different objects, parts, metrics, states or actions
4) phenomenon vs cause, phenomenon vs fix, fix vs procedure
5) if you are unsure, answer none.
Reply with strict JSON only: {"index": <number or null>}. No explanations.`

var chooseBestShots = []Message{
	{Role: RoleUser, Content: "Query: the robot will not power on\nCandidates:\n0. the robot cannot be powered on\nJSON only."},
	{Role: RoleAssistant, Content: `{"index": 0}`},
	{Role: RoleUser, Content: "Query: the console confirms the AP is offline\nCandidates:\n0. the console shows an error code\nJSON only."},
	{Role: RoleAssistant, Content: `{"index": null}`},
	{Role: RoleUser, Content: "Query: check whether the battery connector is loose\nCandidates:\n0. try reseating the battery connector\nJSON only."},
	{Role: RoleAssistant, Content: `{"index": null}`},
	{Role: RoleUser, Content: "Query: the console reports the AP offline\nCandidates:\n0. the console shows an error code\n1. the console reports the AP offline\nJSON only."},
	{Role: RoleAssistant, Content: `{"index": 1}`},
}

// ChooseBest picks the candidate equivalent to query, or NoCandidate.
func (o *LLMOracle) ChooseBest(ctx context.Context, query string, candidates []string) (int, error) {
	if len(candidates) == 0 {
		return NoCandidate, nil
	}
	descs := candidateDescriptions(candidates)
	messages := make([]Message, 0, len(chooseBestShots)+2)
	messages = append(messages, Message{Role: RoleSystem, Content: chooseBestSystem})
	messages = append(messages, chooseBestShots...)
	messages = append(messages, Message{
		Role:    RoleUser,
		Content: fmt.Sprintf("Query: %s\nCandidates:\n%s\nJSON only.", query, numbered(descs)),
	})
	raw, err := o.complete(ctx, 0, messages...)
	if err != nil {
		return NoCandidate, err
	}
	if idx, ok := parseIndex(raw, len(descs)); ok {
		return idx, nil
	}
	// Last resort: exact match after whitespace/punctuation normalization.
	nq := normalizeSentence(query)
	for i, d := range descs {
		if normalizeSentence(d) == nq {
			return i, nil
		}
	}
	return NoCandidate, nil
}

const yesNoSystem = `You are a strict binary judge. Answer the question Q using only the conversation R.
Hard rules:
1) The verdict must rest on explicit textual evidence in R. Do not extrapolate or use world knowledge.
2) If R does not mention it, or no firm conclusion follows, answer unsure ("not mentioned" is NOT "no").
Reply with strict JSON only: {"answer":"yes"|"no"|"unsure"}.`

// YesNo answers a question strictly grounded on the dialog log.
func (o *LLMOracle) YesNo(ctx context.Context, question string, dialog []Turn) (Answer, error) {
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: yesNoSystem},
		Message{Role: RoleUser, Content: fmt.Sprintf("Q: %s\nR:\n%s", question, renderDialog(dialog))},
	)
	if err != nil {
		return AnswerUnsure, err
	}
	if ans, ok := parseAnswerJSON(raw); ok {
		return ans, nil
	}
	return parseYesNo(raw), nil
}

const pickChildSystem = `You are a diagnostic router. Given the confirmed current symptom and the conversation, pick the candidate symptom that matches the user's situation and is worth checking next.
Only pick a candidate the conversation actually supports; if none applies, answer none.
Reply with strict JSON only: {"index": <number or null>}.`

// PickChild routes among sibling features.
func (o *LLMOracle) PickChild(ctx context.Context, current string, candidates []string, dialog []Turn) (int, error) {
	if len(candidates) == 0 {
		return NoCandidate, nil
	}
	descs := candidateDescriptions(candidates)
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: pickChildSystem},
		Message{Role: RoleUser, Content: fmt.Sprintf(
			"Current symptom: %s\nCandidates:\n%s\nConversation:\n%s\nJSON only.",
			current, numbered(descs), renderDialog(dialog))},
	)
	if err != nil {
		return NoCandidate, err
	}
	if idx, ok := parseIndex(raw, len(descs)); ok {
		return idx, nil
	}
	return NoCandidate, nil
}

const solvesSystem = `Judge whether the given solution directly addresses the given problem.
Strict: phenomenon is not cause; containment or super/subset is not a match; different devices or fields must not be conflated.
Reply with strict JSON only: {"match": true|false|null}.`

// SolutionSolvesProblem reports whether solution directly addresses problem.
func (o *LLMOracle) SolutionSolvesProblem(ctx context.Context, solution, problem string) (Answer, error) {
	key := cacheKey("solves", solution, problem)
	if v, ok := o.cached(ctx, key); ok {
		return parseYesNo(v), nil
	}
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: solvesSystem},
		Message{Role: RoleUser, Content: fmt.Sprintf("Problem: %s\nSolution: %s\nJSON only.", problem, solution)},
	)
	if err != nil {
		return AnswerUnsure, err
	}
	ans := parseMatchJSON(raw)
	o.store(ctx, key, ans.String())
	return ans, nil
}

const inferProblemSystem = `You derive problems from solutions.
Given a solution, infer the problem it is meant to fix.
Requirements:
1. Output one concise problem description.
2. It must be a latent cause or fault condition, not an action.
3. Output a declarative sentence, never a question, and nothing else.`

// InferProblemFromSolution derives the latent problem a solution addresses.
func (o *LLMOracle) InferProblemFromSolution(ctx context.Context, solution string) (string, error) {
	key := cacheKey("infer_problem", solution)
	if v, ok := o.cached(ctx, key); ok {
		return v, nil
	}
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: inferProblemSystem},
		Message{Role: RoleUser, Content: "Solution: " + solution + "\n\nThe problem it addresses:"},
	)
	if err != nil {
		return "", err
	}
	statement := firstLine(raw)
	if statement == "" {
		statement = solution
	}
	o.store(ctx, key, statement)
	return statement, nil
}

const pickProblemSystem = `You are a matcher. Given a solution S and candidate problems P[i], a candidate matches only when S directly fixes P[i].
Strict requirements:
- phenomenon is not cause; containment or super/subset is not a match; different modules or fields must not be conflated;
- no associative leaps, only strict semantic fit;
- candidates may be "id:description"; judge only the description after the colon.
Reply with strict JSON only: {"index": <number or null>}.`

// PickProblemForSolution selects which candidate problem a solution fixes.
func (o *LLMOracle) PickProblemForSolution(ctx context.Context, solution string, candidates []string) (int, error) {
	if len(candidates) == 0 {
		return NoCandidate, nil
	}
	descs := candidateDescriptions(candidates)
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: pickProblemSystem},
		Message{Role: RoleUser, Content: fmt.Sprintf(
			"Solution S: %s\nCandidate problems:\n%s\nJSON only, e.g. {\"index\": 2} or {\"index\": null}.",
			solution, numbered(descs))},
	)
	if err == nil {
		if idx, ok := parseIndex(raw, len(descs)); ok && idx != NoCandidate {
			return idx, nil
		}
	}
	// Pairwise fallback: first candidate the solves-judge confirms.
	for i, desc := range descs {
		ans, err := o.SolutionSolvesProblem(ctx, solution, desc)
		if err != nil {
			return NoCandidate, err
		}
		if ans == AnswerYes {
			return i, nil
		}
	}
	return NoCandidate, nil
}

const followupSystem = `You are a dialog clarifier. Given a yes/no question and the conversation so far, ask the one minimal follow-up that would let the question be decided.
Output a single-sentence question, no explanations.`

// FollowupQuestion produces one clarifying question for an undecided yes/no
// question. On failure it returns a generic but usable fallback.
func (o *LLMOracle) FollowupQuestion(ctx context.Context, question string, dialog []Turn) (string, error) {
	raw, err := o.complete(ctx, 0,
		Message{Role: RoleSystem, Content: followupSystem},
		Message{Role: RoleUser, Content: fmt.Sprintf("Question: %s\nConversation:\n%s\nOne precise follow-up:", question, renderDialog(dialog))},
	)
	if err != nil || firstLine(raw) == "" {
		return fmt.Sprintf("To decide, please answer yes or no: %s", question), err
	}
	return firstLine(raw), nil
}
