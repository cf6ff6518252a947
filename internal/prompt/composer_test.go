package prompt_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterviewGuru/internal/persona"
	"InterviewGuru/internal/prompt"
	"InterviewGuru/internal/session"
)

func history(n int) []session.Turn {
	turns := make([]session.Turn, 0, n)
	for i := range n {
		speaker := session.Candidate
		if i%2 == 0 {
			speaker = session.Interviewer
		}
		turns = append(turns, session.Turn{Speaker: speaker, Text: fmt.Sprintf("turn-%02d", i)})
	}
	return turns
}

func TestCompose_Priming(t *testing.T) {
	out, err := prompt.Compose(prompt.Input{
		Role:    "Sales",
		Level:   "Senior",
		Stage:   2,
		Persona: persona.Chatty,
		History: history(10),
		Priming: true,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "PERSONA DETECTION")
	assert.Contains(t, out, `"nextQuestion"`)
	assert.Contains(t, out, "Role: Sales")
	assert.Contains(t, out, "Level: Senior")
	assert.Contains(t, out, "Current stage: 2 (Programming basics)")
	assert.Contains(t, out, prompt.Hint(persona.Chatty))
	assert.Contains(t, out, session.Greeting)
	assert.Contains(t, out, "5. Scenarios and wrap-up")

	// only the trailing six turns
	assert.NotContains(t, out, "turn-03")
	for i := 4; i < 10; i++ {
		assert.Contains(t, out, fmt.Sprintf("turn-%02d", i))
	}
	assert.Contains(t, out, "INTERVIEWER: turn-04")
	assert.Contains(t, out, "CANDIDATE: turn-09")
}

func TestCompose_Continuation(t *testing.T) {
	out, err := prompt.Compose(prompt.Input{
		Role:    "Sales",
		Level:   "Junior",
		Stage:   9,
		History: history(5),
	})
	require.NoError(t, err)

	assert.NotContains(t, out, "PERSONA DETECTION")
	assert.NotContains(t, out, "Role: Sales")
	assert.Contains(t, out, "Current stage: 5 (Scenarios and wrap-up)")
	assert.Contains(t, out, prompt.Hint(persona.None))
	assert.Contains(t, out, "INTERVIEWER: turn-04")
	assert.NotContains(t, out, "turn-03")
	assert.Less(t, len(out), 400)
}

func TestCompose_FlattensAndTruncatesTurns(t *testing.T) {
	long := "line one\nline two\r\n" + strings.Repeat("x", 600)
	out, err := prompt.Compose(prompt.Input{
		History: []session.Turn{{Speaker: session.Candidate, Text: long}},
	})
	require.NoError(t, err)

	var line string
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "CANDIDATE: ") {
			line = strings.TrimPrefix(l, "CANDIDATE: ")
		}
	}
	require.NotEmpty(t, line)
	assert.True(t, strings.HasPrefix(line, "line one line two "))
	assert.Len(t, []rune(line), prompt.MaxTurnLength)
}

func TestSummary(t *testing.T) {
	out, err := prompt.Summary("Product Manager", "Mid", history(12))
	require.NoError(t, err)

	assert.Contains(t, out, "role Product Manager, level Mid")
	assert.Contains(t, out, `"top_improvements"`)
	assert.Contains(t, out, "INTERVIEWER: turn-00")
	assert.Contains(t, out, "CANDIDATE: turn-11")
}
