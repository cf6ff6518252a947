package reply

import (
	"strings"

	"github.com/tidwall/gjson"
)

// Scores are the overall 0-5 ratings of an interview.
type Scores struct {
	Communication *int `json:"communication"`
	Structure     *int `json:"structure"`
	Technical     *int `json:"technical"`
}

// Summary is the end-of-interview assessment.
type Summary struct {
	Overall         string   `json:"overall"`
	Scores          Scores   `json:"scores"`
	Strengths       []string `json:"strengths"`
	TopImprovements []string `json:"top_improvements"`
}

// NormalizeSummary parses the summarizer output. When nothing can be
// recovered the raw text becomes the overall summary.
func NormalizeSummary(raw string) Summary {
	repaired, err := Repair(raw)
	if err != nil {
		return Summary{
			Overall:         strings.TrimSpace(raw),
			Strengths:       []string{},
			TopImprovements: []string{},
		}
	}

	doc := gjson.Parse(repaired)
	improvements := doc.Get("top_improvements")
	if !improvements.Exists() {
		improvements = doc.Get("improvements")
	}

	scores := doc.Get("scores")
	return Summary{
		Overall: strings.TrimSpace(doc.Get("overall").String()),
		Scores: Scores{
			Communication: score(scores.Get("communication")),
			Structure:     score(scores.Get("structure")),
			Technical:     score(scores.Get("technical")),
		},
		Strengths:       stringList(doc.Get("strengths")),
		TopImprovements: stringList(improvements),
	}
}
