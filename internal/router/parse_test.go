package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    string
		wantErr error
	}{
		{"bare", `{"a":1}`, `{"a":1}`, nil},
		{"prose around", "Here you go:\n{\"a\": {\"b\": 2}}\nHope that helps {not json}", `{"a": {"b": 2}}`, nil},
		{"braces in strings", `x {"s": "a } b { c", "t": "\"}"} y`, `{"s": "a } b { c", "t": "\"}"}`, nil},
		{"no object", "Score: 0.4", "", ErrNoObject},
		{"unbalanced", `{"a": {"b": 1}`, "", ErrUnbalanced},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractObject(tt.reply)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseObject_TrailingCommas(t *testing.T) {
	obj, err := ParseObject("```json\n{\"themes\": [{\"theme\": \"Cloud\", \"keywords\": [\"aws\", \"gcp\",],},],}\n```")
	require.NoError(t, err)

	themes, ok := obj["themes"].([]any)
	require.True(t, ok)
	require.Len(t, themes, 1)
}

func TestParseObject_Malformed(t *testing.T) {
	_, err := ParseObject(`{"a": tru}`)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseScore(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		signal  string
		labeled bool
		want    Score
	}{
		{
			name:   "score and reason lines",
			reply:  "Score: 0.87\nReason: Mentions submission deadlines",
			signal: "expectation_identifier",
			want:   Score{Value: 0.87, Reason: "Mentions submission deadlines"},
		},
		{
			name:   "signal prefix with rationale",
			reply:  "eval_criteria_identifier: 0.9 - Lists technical factors",
			signal: "eval_criteria_identifier",
			want:   Score{Value: 0.9, Reason: "Lists technical factors"},
		},
		{
			name:   "spaced signal name",
			reply:  "Expectation Identifier: .5 - format rules",
			signal: "expectation_identifier",
			want:   Score{Value: 0.5, Reason: "format rules"},
		},
		{
			name:    "label and reason",
			reply:   "win_theme_mapper: 0.85 - Differentiator - Highlights rapid deployment - fast",
			signal:  "win_theme_mapper",
			labeled: true,
			want:    Score{Value: 0.85, Label: "differentiator", Reason: "Highlights rapid deployment - fast"},
		},
		{
			name:    "label only",
			reply:   "win_theme_mapper: 0.3 - pain point",
			signal:  "win_theme_mapper",
			labeled: true,
			want:    Score{Value: 0.3, Label: "pain point"},
		},
		{
			name:   "clamped and rounded",
			reply:  "Score: 1.456",
			signal: "x",
			want:   Score{Value: 1},
		},
		{
			name:   "rounded",
			reply:  "score: 0.666",
			signal: "x",
			want:   Score{Value: 0.67},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScore(tt.reply, tt.signal, tt.labeled)
			require.NoError(t, err)
			assert.InDelta(t, tt.want.Value, got.Value, 1e-9)
			assert.Equal(t, tt.want.Label, got.Label)
			assert.Equal(t, tt.want.Reason, got.Reason)
		})
	}
}

func TestParseScore_NoScore(t *testing.T) {
	for _, reply := range []string{"", "I cannot determine this.", "Score: high"} {
		_, err := ParseScore(reply, "expectation_identifier", false)
		assert.ErrorIs(t, err, ErrNoScore, reply)
	}
}
