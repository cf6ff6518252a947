// Package stage tracks the ordinal position of an interview in its fixed
// topic progression.
package stage

import "github.com/samber/lo"

const (
	Min = 0
	Max = 5

	// regressTo is where a no-experience claim sends a late-stage interview.
	regressTo      = 3
	regressFrom    = 4
	windowSize     = 4
	windowMajority = 2
)

var names = []string{
	"Background",
	"Education / Fundamentals",
	"Programming basics",
	"Technical knowledge",
	"Experience",
	"Scenarios and wrap-up",
}

// Name returns the topic label of a stage.
func Name(stage int) string {
	return names[Clamp(stage)]
}

// Names returns all stage labels in order.
func Names() []string {
	return append([]string(nil), names...)
}

// Clamp bounds stage to [Min, Max].
func Clamp(stage int) int {
	return lo.Clamp(stage, Min, Max)
}

// Step applies the per-turn transitions. A move-on request advances one
// stage; a no-experience claim at stage 4 or later regresses to stage 3 and
// forces the no-experience persona.
func Step(current int, moveOn, noExperience bool) (next int, forceNoExperience bool) {
	next = Clamp(current)
	if moveOn {
		next = Clamp(next + 1)
	}
	if noExperience && next >= regressFrom {
		return regressTo, true
	}
	return next, false
}

// WindowVote advances the stage by one when at least two of the last four
// candidate messages asked to move on. It runs after Step on the same turn,
// so a single message can advance the stage twice.
func WindowVote(current int, candidateTexts []string, isMoveOn func(string) bool) int {
	recent := candidateTexts
	if len(recent) > windowSize {
		recent = recent[len(recent)-windowSize:]
	}
	if lo.CountBy(recent, isMoveOn) >= windowMajority {
		return Clamp(current + 1)
	}
	return Clamp(current)
}
