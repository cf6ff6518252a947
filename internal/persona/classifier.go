// Package persona classifies the latest candidate utterance into a single
// persona or intent signal.
package persona

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/samber/lo"
)

// Signal is the outcome of classifying one candidate message.
type Signal string

const (
	None         Signal = ""
	Confused     Signal = "confused"
	Efficient    Signal = "efficient"
	Chatty       Signal = "chatty"
	NoExperience Signal = "no-experience"
	MoveOn       Signal = "move-on"
	End          Signal = "end"
)

// IsPersona reports whether the signal describes the candidate and should be
// persisted on the session. Intents (move-on, end) never are.
func (s Signal) IsPersona() bool {
	switch s {
	case Confused, Efficient, Chatty, NoExperience:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes None as null so clients see an unset persona.
func (s Signal) MarshalJSON() ([]byte, error) {
	if s == None {
		return []byte("null"), nil
	}
	return json.Marshal(string(s))
}

// Rule maps a signal to the phrases that trigger it.
type Rule struct {
	Signal  Signal
	Phrases []string

	pattern *regexp.Regexp // word-bounded match instead of substring
}

// Match reports whether the lower-cased text triggers the rule.
func (r Rule) Match(lower string) bool {
	if r.pattern != nil {
		return r.pattern.MatchString(lower)
	}
	return lo.ContainsBy(r.Phrases, func(p string) bool {
		return strings.Contains(lower, p)
	})
}

func wordBounded(signal Signal, phrases ...string) Rule {
	quoted := lo.Map(phrases, func(p string, _ int) string { return regexp.QuoteMeta(p) })
	return Rule{
		Signal:  signal,
		Phrases: phrases,
		pattern: regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`),
	}
}

var (
	noExperienceRule = Rule{Signal: NoExperience, Phrases: []string{
		"i haven't", "i have not", "no i haven't", "no i haven't built", "i don't have",
		"none", "not yet", "no projects", "no project", "no experience", "i haven't done any project",
	}}
	endRule = Rule{Signal: End, Phrases: []string{
		"end interview", "end the interview", "shall we end", "let's end", "stop", "i want to stop",
		"that's all", "no more", "bye", "thank you, that's all", "finish",
	}}
	moveOnRule = Rule{Signal: MoveOn, Phrases: []string{
		"move on", "next question", "skip", "something else", "dont want to talk about that",
		"don't want to talk about", "shall we move on", "let's move on",
	}}
	confusedRule = wordBounded(Confused,
		"umm", "uh", "idk", "i don't know", "not sure", "i'm not sure", "i dont know",
	)
)

// Rules is the phrase table in priority order. Chatty and efficient sit
// between move-on and confused and are decided by length, not phrases.
var Rules = []Rule{noExperienceRule, endRule, moveOnRule, confusedRule}

const (
	chattyLength       = 180
	chattyClauseLength = 100
	chattyMinCommas    = 2
	efficientMaxTokens = 2
	efficientMaxLength = 20
)

// Result is the classification of a single message.
type Result struct {
	Signal Signal

	matched map[Signal]bool
}

// Matches reports whether the phrase rule for signal fired, independent of
// the prioritised Signal. A message can both claim no experience and ask to
// end the interview.
func (r Result) Matches(signal Signal) bool {
	return r.matched[signal]
}

// Classify returns at most one signal for text with priority
// no-experience > end > move-on > chatty > efficient > confused > none.
func Classify(text string) Result {
	lower := strings.ToLower(strings.TrimSpace(text))
	res := Result{matched: map[Signal]bool{}}
	if lower == "" {
		return res
	}

	for _, rule := range Rules {
		if rule.Match(lower) {
			res.matched[rule.Signal] = true
		}
	}

	length := utf8.RuneCountInString(lower)
	switch {
	case res.matched[NoExperience]:
		res.Signal = NoExperience
	case res.matched[End]:
		res.Signal = End
	case res.matched[MoveOn]:
		res.Signal = MoveOn
	case length > chattyLength || (strings.Count(lower, ",") >= chattyMinCommas && length > chattyClauseLength):
		res.Signal = Chatty
	case len(strings.Fields(lower)) <= efficientMaxTokens && length < efficientMaxLength:
		res.Signal = Efficient
	case res.matched[Confused]:
		res.Signal = Confused
	}

	return res
}

// IsMoveOn reports whether text asks to move to another topic.
func IsMoveOn(text string) bool {
	return moveOnRule.Match(strings.ToLower(text))
}
