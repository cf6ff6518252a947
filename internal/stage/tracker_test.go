package stage_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"InterviewGuru/internal/stage"
)

func isSkip(s string) bool { return strings.Contains(s, "skip") }

func TestStep(t *testing.T) {
	tests := []struct {
		name         string
		current      int
		moveOn       bool
		noExperience bool
		expected     int
		forced       bool
	}{
		{name: "nothing", current: 2, expected: 2},
		{name: "move on", current: 2, moveOn: true, expected: 3},
		{name: "move on capped", current: 5, moveOn: true, expected: 5},
		{name: "no experience early", current: 3, noExperience: true, expected: 3},
		{name: "no experience late regresses", current: 4, noExperience: true, expected: 3, forced: true},
		{name: "no experience at max", current: 5, noExperience: true, expected: 3, forced: true},
		{name: "move on into regression", current: 3, moveOn: true, noExperience: true, expected: 3, forced: true},
		{name: "out of range input", current: 9, expected: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, forced := stage.Step(tt.current, tt.moveOn, tt.noExperience)
			assert.Equal(t, tt.expected, next)
			assert.Equal(t, tt.forced, forced)
		})
	}
}

func TestWindowVote(t *testing.T) {
	assert.Equal(t, 1, stage.WindowVote(1, []string{"hello", "skip"}, isSkip))
	assert.Equal(t, 2, stage.WindowVote(1, []string{"skip", "hello", "skip"}, isSkip))
	assert.Equal(t, 5, stage.WindowVote(5, []string{"skip", "skip"}, isSkip))

	// only the last four candidate messages count
	assert.Equal(t, 1, stage.WindowVote(1, []string{"skip", "skip", "a", "b", "c", "d"}, isSkip))
	assert.Equal(t, 2, stage.WindowVote(1, []string{"a", "skip", "b", "skip", "c"}, isSkip))
}

// A move-on message that completes a window majority advances twice in the
// same turn: once from Step and once from WindowVote.
func TestDoubleAdvanceInOneTurn(t *testing.T) {
	history := []string{"skip this one", "I know a bit", "skip again"}

	next, _ := stage.Step(0, true, false)
	next = stage.WindowVote(next, history, isSkip)

	assert.Equal(t, 2, next)
}

func TestName(t *testing.T) {
	assert.Equal(t, "Background", stage.Name(0))
	assert.Equal(t, "Scenarios and wrap-up", stage.Name(42))
	assert.Len(t, stage.Names(), stage.Max+1)
}
