package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedChat replies from a queue and records how often it was called.
type scriptedChat struct {
	replies []string
	calls   int
	err     error
}

func (c *scriptedChat) Chat(_ context.Context, _ []Message, _ float64) (string, error) {
	c.calls++
	if c.err != nil {
		return "", c.err
	}
	if len(c.replies) == 0 {
		return "", nil
	}
	reply := c.replies[0]
	if len(c.replies) > 1 {
		c.replies = c.replies[1:]
	}
	return reply, nil
}

func TestClassify(t *testing.T) {
	tests := []struct {
		reply string
		want  Label
	}{
		{"feature", LabelFeature},
		{"Problem", LabelProblem},
		{"solution\nbecause it is an action", LabelSolution},
		{"other", LabelOther},
		{"no idea", LabelOther},
	}
	for _, tc := range tests {
		o := New(&scriptedChat{replies: []string{tc.reply}})
		got, err := o.Classify(context.Background(), "the robot won't boot")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "reply %q", tc.reply)
	}
}

func TestClassifyUnavailable(t *testing.T) {
	o := New(&scriptedChat{err: ErrUnavailable})
	_, err := o.Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestCanonicalizeProblemTakesFirstLine(t *testing.T) {
	o := New(&scriptedChat{replies: []string{"battery charge is too low\nextra commentary"}})
	got, err := o.CanonicalizeProblem(context.Background(), "uh the battery thing again??")
	require.NoError(t, err)
	assert.Equal(t, "battery charge is too low", got)
}

func TestEquivalent(t *testing.T) {
	o := New(&scriptedChat{replies: []string{"yes"}})
	same, err := o.Equivalent(context.Background(), "robot won't boot", "the robot cannot power on")
	require.NoError(t, err)
	assert.True(t, same)

	o = New(&scriptedChat{replies: []string{"no"}})
	same, err = o.Equivalent(context.Background(), "low battery", "AP offline")
	require.NoError(t, err)
	assert.False(t, same)

	// an ambiguous verdict is not equivalence
	o = New(&scriptedChat{replies: []string{"hard to say"}})
	same, err = o.Equivalent(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.False(t, same)
}

func TestEquivalentCachesVerdicts(t *testing.T) {
	chat := &scriptedChat{replies: []string{"yes"}}
	o := New(chat, WithCache(NewMemoryCache()))

	ctx := context.Background()
	same, err := o.Equivalent(ctx, "a", "b")
	require.NoError(t, err)
	assert.True(t, same)

	// symmetric pair hits the same entry
	same, err = o.Equivalent(ctx, "b", "a")
	require.NoError(t, err)
	assert.True(t, same)
	assert.Equal(t, 1, chat.calls)
}

func TestChooseBest(t *testing.T) {
	candidates := []string{"F_1:the robot cannot power on", "F_2:the console shows an error code"}

	o := New(&scriptedChat{replies: []string{`{"index": 0}`}})
	idx, err := o.ChooseBest(context.Background(), "robot won't boot", candidates)
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	o = New(&scriptedChat{replies: []string{`{"index": null}`}})
	idx, err = o.ChooseBest(context.Background(), "something else entirely", candidates)
	require.NoError(t, err)
	assert.Equal(t, NoCandidate, idx)

	// a bare number is accepted
	o = New(&scriptedChat{replies: []string{"1"}})
	idx, err = o.ChooseBest(context.Background(), "console error code", candidates)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	// out-of-range index degrades to none
	o = New(&scriptedChat{replies: []string{`{"index": 7}`}})
	idx, err = o.ChooseBest(context.Background(), "robot won't boot", candidates)
	require.NoError(t, err)
	assert.Equal(t, NoCandidate, idx)

	// empty candidate list never calls the model
	chat := &scriptedChat{}
	o = New(chat)
	idx, err = o.ChooseBest(context.Background(), "anything", nil)
	require.NoError(t, err)
	assert.Equal(t, NoCandidate, idx)
	assert.Zero(t, chat.calls)
}

func TestChooseBestExactMatchFallback(t *testing.T) {
	// garbage reply, but the query matches a candidate verbatim
	o := New(&scriptedChat{replies: []string{"???"}})
	idx, err := o.ChooseBest(context.Background(), "The robot cannot power on.",
		[]string{"F_1:the robot cannot power on"})
	require.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestYesNo(t *testing.T) {
	dialog := []Turn{{Role: RoleUser, Content: "the robot won't boot"}}

	tests := []struct {
		reply string
		want  Answer
	}{
		{`{"answer":"yes"}`, AnswerYes},
		{`{"answer":"no"}`, AnswerNo},
		{`{"answer":"unsure"}`, AnswerUnsure},
		{"yes", AnswerYes},
		{"I truly cannot tell", AnswerUnsure},
	}
	for _, tc := range tests {
		o := New(&scriptedChat{replies: []string{tc.reply}})
		got, err := o.YesNo(context.Background(), "is the robot booting?", dialog)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "reply %q", tc.reply)
	}
}

func TestSolutionSolvesProblem(t *testing.T) {
	o := New(&scriptedChat{replies: []string{`{"match": true}`}})
	ans, err := o.SolutionSolvesProblem(context.Background(), "charge the battery", "low battery")
	require.NoError(t, err)
	assert.Equal(t, AnswerYes, ans)

	o = New(&scriptedChat{replies: []string{`{"match": null}`}})
	ans, err = o.SolutionSolvesProblem(context.Background(), "charge the battery", "AP offline")
	require.NoError(t, err)
	assert.Equal(t, AnswerUnsure, ans)
}

func TestPickProblemForSolutionPairwiseFallback(t *testing.T) {
	// first reply carries no verdict at all, so the oracle falls back to
	// pairwise matching; the second candidate confirms
	chat := &scriptedChat{replies: []string{
		"sorry, I can't answer in that format",
		`{"match": false}`,
		`{"match": true}`,
	}}
	o := New(chat)
	idx, err := o.PickProblemForSolution(context.Background(), "reseat the antennas",
		[]string{"P_1:low battery", "P_2:AP offline"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestFollowupQuestionFallsBack(t *testing.T) {
	o := New(&scriptedChat{err: errors.New("boom")})
	q, err := o.FollowupQuestion(context.Background(), "is the LED on?", nil)
	assert.Error(t, err)
	assert.Contains(t, q, "is the LED on?")
}

func TestInferProblemFromSolution(t *testing.T) {
	o := New(&scriptedChat{replies: []string{"the antenna connection is loose"}})
	got, err := o.InferProblemFromSolution(context.Background(), "reseat the antennas")
	require.NoError(t, err)
	assert.Equal(t, "the antenna connection is loose", got)
}
