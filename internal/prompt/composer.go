// Package prompt renders the documents sent to the generation endpoint.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/samber/lo"

	"InterviewGuru/internal/persona"
	"InterviewGuru/internal/session"
	"InterviewGuru/internal/stage"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

const (
	// HistoryWindow is how many trailing turns a priming document carries.
	HistoryWindow = 6
	// MaxTurnLength bounds each rendered turn, in characters.
	MaxTurnLength = 400
)

var hints = map[persona.Signal]string{
	persona.Confused:     "The candidate seems unsure. Ask a simpler background question and offer gentle guidance.",
	persona.NoExperience: "The candidate has no project experience. Keep to beginner questions and avoid system design or production debugging.",
	persona.Efficient:    "The candidate answers briefly. Ask a direct, concise question.",
	persona.Chatty:       "The candidate tends to ramble. Gently steer back to the current topic.",
}

const defaultHint = "No persona detected yet. Keep a neutral tone."

// Hint returns the guidance line for a persona.
func Hint(p persona.Signal) string {
	if h, ok := hints[p]; ok {
		return h
	}
	return defaultHint
}

// Input is everything a turn prompt is built from.
type Input struct {
	Role    string
	Level   string
	Stage   int
	Persona persona.Signal
	History []session.Turn
	// Priming selects the full rule document for the first call of a
	// session. Later calls only carry the latest turn.
	Priming bool
}

type document struct {
	Role        string
	Level       string
	Stage       int
	StageName   string
	Stages      []string
	Hint        string
	Lines       []string
	StartMarker string
	Greeting    string
}

// Compose renders the prompt for one candidate turn.
func Compose(in Input) (string, error) {
	doc := document{
		Role:        in.Role,
		Level:       in.Level,
		Stage:       stage.Clamp(in.Stage),
		StageName:   stage.Name(in.Stage),
		Stages:      stage.Names(),
		Hint:        Hint(in.Persona),
		StartMarker: session.StartMarker,
		Greeting:    session.Greeting,
	}

	name := "continuation.tmpl"
	window := 1
	if in.Priming {
		name = "priming.tmpl"
		window = HistoryWindow
	}
	doc.Lines = renderTurns(lastN(in.History, window))

	return execute(name, doc)
}

// Summary renders the end-of-interview summarizer prompt over the full
// history.
func Summary(role, level string, history []session.Turn) (string, error) {
	return execute("summary.tmpl", document{
		Role:  role,
		Level: level,
		Lines: renderTurns(history),
	})
}

func execute(name string, doc document) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, doc); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func lastN(turns []session.Turn, n int) []session.Turn {
	if len(turns) <= n {
		return turns
	}
	return turns[len(turns)-n:]
}

func renderTurns(turns []session.Turn) []string {
	return lo.Map(turns, func(t session.Turn, _ int) string {
		return strings.ToUpper(string(t.Speaker)) + ": " + flatten(t.Text)
	})
}

// flatten puts text on one line and truncates it to MaxTurnLength runes.
func flatten(text string) string {
	runes := []rune(strings.TrimSpace(newlines.Replace(text)))
	if len(runes) > MaxTurnLength {
		runes = runes[:MaxTurnLength]
	}
	return string(runes)
}

var newlines = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
