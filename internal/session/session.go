package session

import (
	"strings"
	"time"

	"github.com/samber/lo"

	"InterviewGuru/internal/persona"
)

// Speaker identifies who produced a turn
type Speaker string

const (
	Interviewer Speaker = "interviewer"
	Candidate   Speaker = "candidate"
)

const (
	// StartMarker is the synthetic first interviewer turn of every session.
	StartMarker = "__INTERVIEW_START__"
	// Greeting is the interviewer's opening question.
	Greeting = "Hi I'm InterviewGuru, Shall we start the interview? Tell me about yourself."
)

// Turn represents a single recorded message
type Turn struct {
	Speaker Speaker `json:"role"`
	Text    string  `json:"text"`
}

// Session represents an interview session
type Session struct {
	ID          string         `json:"id"`
	Role        string         `json:"role"`
	Level       string         `json:"level"`
	Turns       []Turn         `json:"history"`
	Stage       int            `json:"stage"`
	Persona     persona.Signal `json:"persona"`
	Initialized bool           `json:"initialized"`
	Closed      bool           `json:"closed"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Append adds a turn at the end of the history.
func (s *Session) Append(speaker Speaker, text string) {
	s.Turns = append(s.Turns, Turn{Speaker: speaker, Text: text})
}

// LastInterviewerText returns the most recent interviewer turn, if any.
func (s *Session) LastInterviewerText() (string, bool) {
	turn, _, ok := lo.FindLastIndexOf(s.Turns, func(t Turn) bool {
		return t.Speaker == Interviewer
	})
	return turn.Text, ok
}

// CandidateTexts returns the candidate turns lower-cased, oldest first.
func (s *Session) CandidateTexts() []string {
	return lo.FilterMap(s.Turns, func(t Turn, _ int) (string, bool) {
		return strings.ToLower(t.Text), t.Speaker == Candidate
	})
}

// Clone returns a deep copy safe to hand out of the store.
func (s *Session) Clone() *Session {
	c := *s
	c.Turns = append([]Turn(nil), s.Turns...)
	return &c
}
