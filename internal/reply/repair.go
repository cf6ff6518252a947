// Package reply turns raw model output into a well-formed interviewer reply.
package reply

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"InterviewGuru/internal/serviceerr"
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// Repair recovers a JSON object from model output. Candidates are tried in
// order and the first that parses as an object wins:
//
//  1. the whole text
//  2. the first brace-balanced object, closed if the text ends inside it
//  3. 1 and 2 with trailing commas before } or ] removed
//  4. the truncated object cut back to its last complete member
//
// It returns serviceerr.ErrMalformedReply when nothing parses.
func Repair(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", serviceerr.ErrMalformedReply
	}

	scan := scanObject(text)
	candidates := []string{text, scan.object}
	candidates = append(candidates, stripTrailingCommas(text), stripTrailingCommas(scan.object))
	if scan.truncated {
		candidates = append(candidates, scan.cut, stripTrailingCommas(scan.cut))
	}

	for _, c := range candidates {
		if c != "" && gjson.Valid(c) && gjson.Parse(c).IsObject() {
			return c, nil
		}
	}
	return "", serviceerr.ErrMalformedReply
}

func stripTrailingCommas(s string) string {
	if s == "" {
		return ""
	}
	return trailingComma.ReplaceAllString(s, "$1")
}

type scanResult struct {
	object    string
	cut       string
	truncated bool
}

// scanObject finds the first object in s with a string-aware bracket scan.
// When s ends before the object closes, object is the remainder with the
// missing closers appended and cut is the same object ended at its last
// comma outside a string.
func scanObject(s string) scanResult {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return scanResult{}
	}

	var (
		stack     []byte
		inString  bool
		escaped   bool
		lastComma = -1
		atComma   []byte
	)
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return scanResult{}
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return scanResult{object: s[start : i+1]}
			}
		case ',':
			lastComma = i
			atComma = append(atComma[:0], stack...)
		}
	}

	tail := s[start:]
	if escaped {
		tail = tail[:len(tail)-1]
	}
	if inString {
		tail += `"`
	}
	res := scanResult{object: tail + closers(stack), truncated: true}
	if lastComma > start {
		res.cut = s[start:lastComma] + closers(atComma)
	}
	return res
}

func closers(stack []byte) string {
	var b strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		b.WriteByte(stack[i])
	}
	return b.String()
}
