package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYesNo(t *testing.T) {
	tests := []struct {
		in   string
		want Answer
	}{
		{"yes", AnswerYes},
		{"Yes.", AnswerYes},
		{"y", AnswerYes},
		{"true", AnswerYes},
		{"no", AnswerNo},
		{"No!", AnswerNo},
		{"n", AnswerNo},
		{"false", AnswerNo},
		{"", AnswerUnsure},
		{"maybe", AnswerUnsure},
		{"yes and no", AnswerUnsure},
		{"yes, it boots now", AnswerYes},
		{"no, charging did not help", AnswerNo},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseYesNo(tc.in), "input %q", tc.in)
	}
}

func TestParseIndex(t *testing.T) {
	idx, ok := parseIndex(`{"index": 2}`, 4)
	assert.True(t, ok)
	assert.Equal(t, 2, idx)

	idx, ok = parseIndex(`{"index": null}`, 4)
	assert.True(t, ok)
	assert.Equal(t, NoCandidate, idx)

	idx, ok = parseIndex("the answer is 1", 4)
	assert.True(t, ok)
	assert.Equal(t, 1, idx)

	idx, ok = parseIndex("none of these", 4)
	assert.True(t, ok)
	assert.Equal(t, NoCandidate, idx)

	_, ok = parseIndex("beats me", 4)
	assert.False(t, ok)

	// out of range through the JSON path degrades to an explicit none
	idx, ok = parseIndex(`{"index": 9}`, 4)
	assert.True(t, ok)
	assert.Equal(t, NoCandidate, idx)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"index": 1}`, extractJSON(`{"index": 1}`))
	assert.Equal(t, `{"index": 1}`, extractJSON("Sure! Here you go: {\"index\": 1} hope that helps"))
}

func TestCandidateDescriptions(t *testing.T) {
	got := candidateDescriptions([]string{"F_1:robot won't boot", "plain description"})
	assert.Equal(t, []string{"robot won't boot", "plain description"}, got)
}

func TestRenderDialog(t *testing.T) {
	assert.Equal(t, "(empty)", renderDialog(nil))
	got := renderDialog([]Turn{
		{Role: RoleUser, Content: "it won't boot"},
		{Role: RoleAssistant, Content: "is the LED on?"},
	})
	assert.Equal(t, "user: it won't boot\nassistant: is the LED on?", got)
}

func TestNormalizeSentence(t *testing.T) {
	assert.Equal(t, normalizeSentence("The robot cannot power on."),
		normalizeSentence("  the robot  cannot power on"))
}
