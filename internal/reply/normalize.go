package reply

import (
	"math"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/tidwall/gjson"

	"InterviewGuru/internal/persona"
)

const (
	minScore = 0
	maxScore = 5
)

// questionKeys are probed in order when nextQuestion comes back as an object.
var questionKeys = []string{"q", "question", "text", "next", "ask", "prompt", "questionText"}

// Feedback is the per-turn assessment of the candidate's answer.
type Feedback struct {
	Communication *int     `json:"communication"`
	Structure     *int     `json:"structure"`
	Technical     *int     `json:"technical"`
	Summary       string   `json:"summary"`
	Improvements  []string `json:"improvements"`
}

// Parsed is a normalized model reply.
type Parsed struct {
	NextQuestion string   `json:"nextQuestion"`
	Feedback     Feedback `json:"feedback"`

	// Comments is the model's own reasoning; it is kept for logs only.
	Comments string `json:"-"`
	// Fallback is set when NextQuestion came from the question bank.
	Fallback bool `json:"-"`
}

// Context is the session state the normalizer needs.
type Context struct {
	Role             string
	Stage            int
	Persona          persona.Signal
	PreviousQuestion string
}

// Normalizer converts raw model text into a Parsed reply. It never fails.
type Normalizer struct {
	bank *Bank
}

func NewNormalizer(bank *Bank) *Normalizer {
	return &Normalizer{bank: bank}
}

// Normalize repairs raw, coerces nextQuestion to a string, substitutes a
// fallback question when it is empty or repeats the previous question, and
// fills in every feedback field.
func (n *Normalizer) Normalize(raw string, ctx Context) Parsed {
	var (
		doc      gjson.Result
		question string
	)
	if repaired, err := Repair(raw); err == nil {
		doc = gjson.Parse(repaired)
	}

	if q := doc.Get("nextQuestion"); q.Exists() {
		question = coerceQuestion(q)
	} else {
		question = strings.TrimSpace(raw)
	}

	out := Parsed{
		NextQuestion: question,
		Feedback:     normalizeFeedback(doc),
		Comments:     strings.TrimSpace(doc.Get("comments").String()),
	}

	if out.NextQuestion == "" || strings.EqualFold(out.NextQuestion, strings.TrimSpace(ctx.PreviousQuestion)) {
		out.NextQuestion = n.bank.Pick(ctx.Role, IsBeginner(ctx.Persona, ctx.Stage), ctx.PreviousQuestion)
		out.Fallback = true
	}
	return out
}

func coerceQuestion(v gjson.Result) string {
	switch {
	case v.Type == gjson.Null:
		return ""
	case v.IsArray():
		parts := lo.Map(v.Array(), func(r gjson.Result, _ int) string { return r.String() })
		return strings.TrimSpace(strings.Join(parts, " "))
	case v.IsObject():
		for _, key := range questionKeys {
			if r := v.Get(key); r.Type == gjson.String {
				return strings.TrimSpace(r.Str)
			}
		}
		return strings.TrimSpace(v.Raw)
	default:
		return strings.TrimSpace(v.String())
	}
}

func normalizeFeedback(doc gjson.Result) Feedback {
	fb := doc.Get("feedback")
	if !fb.IsObject() {
		fb = gjson.Result{}
	}

	summary := fb.Get("summary")
	if !summary.Exists() {
		summary = doc.Get("summary")
	}

	improvements := fb.Get("improvements")
	if !improvements.Exists() {
		improvements = doc.Get("improvements")
	}
	if !improvements.Exists() {
		improvements = doc.Get("improvement")
	}

	return Feedback{
		Communication: score(fb.Get("communication")),
		Structure:     score(fb.Get("structure")),
		Technical:     score(fb.Get("technical")),
		Summary:       strings.TrimSpace(summary.String()),
		Improvements:  stringList(improvements),
	}
}

// score reads a 0-5 rating. Numbers are rounded and clamped, numeric
// strings are accepted, anything else is unrated.
func score(v gjson.Result) *int {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) {
		return nil
	}
	return lo.ToPtr(int(math.Round(lo.Clamp(f, minScore, maxScore))))
}

func stringList(v gjson.Result) []string {
	if !v.Exists() || v.Type == gjson.Null {
		return []string{}
	}
	if !v.IsArray() {
		if s := strings.TrimSpace(v.String()); s != "" {
			return []string{s}
		}
		return []string{}
	}
	out := lo.FilterMap(v.Array(), func(r gjson.Result, _ int) (string, bool) {
		s := strings.TrimSpace(r.String())
		return s, s != ""
	})
	if out == nil {
		return []string{}
	}
	return out
}
