package reply_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"InterviewGuru/internal/reply"
	"InterviewGuru/internal/serviceerr"
)

func TestRepair(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{name: "strict", raw: ` {"nextQuestion":"Why Go?"} `, expected: `{"nextQuestion":"Why Go?"}`},
		{
			name:     "prose around object",
			raw:      "Sure! Here it is:\n{\"nextQuestion\":\"Why Go?\"}\nGood luck.",
			expected: `{"nextQuestion":"Why Go?"}`,
		},
		{
			name:     "first object wins",
			raw:      `{"nextQuestion":"A"} {"nextQuestion":"B"}`,
			expected: `{"nextQuestion":"A"}`,
		},
		{
			name:     "braces inside strings",
			raw:      `note {"nextQuestion":"Use {x} or \"}\"?"} end`,
			expected: `{"nextQuestion":"Use {x} or \"}\"?"}`,
		},
		{
			name:     "trailing commas",
			raw:      `{"nextQuestion":"Why Go?","feedback":{"improvements":["a","b",],},}`,
			expected: `{"nextQuestion":"Why Go?","feedback":{"improvements":["a","b"]}}`,
		},
		{
			name:     "truncated after member",
			raw:      `{"nextQuestion":"X",`,
			expected: `{"nextQuestion":"X"}`,
		},
		{
			name:     "truncated inside nested string",
			raw:      `{"nextQuestion":"X","feedback":{"summary":"Goo`,
			expected: `{"nextQuestion":"X","feedback":{"summary":"Goo"}}`,
		},
		{
			name:     "truncated inside key",
			raw:      `{"nextQuestion":"X","feed`,
			expected: `{"nextQuestion":"X"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := reply.Repair(tt.raw)
			require.NoError(t, err)
			assert.JSONEq(t, tt.expected, got)
		})
	}
}

func TestRepair_Failures(t *testing.T) {
	for _, raw := range []string{"", "   ", "What is a goroutine?", `["a","b"]`, `"just a string"`, "{]"} {
		_, err := reply.Repair(raw)
		assert.ErrorIs(t, err, serviceerr.ErrMalformedReply, raw)
	}
}

func TestRepair_Idempotent(t *testing.T) {
	for _, raw := range []string{
		`{"nextQuestion":"X",`,
		"text {\"a\":[1,2,],} more",
		`{"nextQuestion":{"q":"nested"}}`,
	} {
		once, err := reply.Repair(raw)
		require.NoError(t, err)
		twice, err := reply.Repair(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}
