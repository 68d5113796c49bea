package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Parse errors
var (
	ErrNoObject   = errors.New("no JSON object in reply")
	ErrUnbalanced = errors.New("unbalanced braces in reply")
	ErrMalformed  = errors.New("malformed JSON object in reply")
	ErrNoScore    = errors.New("no score in reply")
)

var trailingComma = regexp.MustCompile(`,\s*([}\]])`)

// ExtractObject returns the first brace-delimited object in reply: from the
// first "{" to the "}" that closes it. Braces inside JSON strings are ignored.
func ExtractObject(reply string) (string, error) {
	start := strings.IndexByte(reply, '{')
	if start < 0 {
		return "", ErrNoObject
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(reply); i++ {
		c := reply[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return reply[start : i+1], nil
			}
		}
	}

	return "", ErrUnbalanced
}

// ParseObject extracts and decodes the first JSON object in reply, tolerating
// trailing commas before a closing brace or bracket
func ParseObject(reply string) (map[string]any, error) {
	raw, err := ExtractObject(reply)
	if err != nil {
		return nil, err
	}

	cleaned := trailingComma.ReplaceAllString(raw, "$1")

	var obj map[string]any
	if err := json.Unmarshal([]byte(cleaned), &obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return obj, nil
}

// Score is a parsed "name: 0.87 - label - reason" reply
type Score struct {
	Value  float64
	Label  string
	Reason string
}

var reasonLine = regexp.MustCompile(`(?im)^\s*reason\s*:\s*(.+)$`)

// ParseScore reads a confidence score from a free-form reply. The score must
// follow "score:" or the signal name (underscores may appear as spaces), and
// may be followed by " - " and free text. When labeled is true the first dash
// segment of that text is the label. Scores are clamped to [0, 1] and rounded
// to two decimals.
func ParseScore(reply, signal string, labeled bool) (Score, error) {
	m := scorePattern(signal).FindStringSubmatch(reply)
	if m == nil {
		return Score{}, ErrNoScore
	}

	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Score{}, fmt.Errorf("%w: %v", ErrNoScore, err)
	}
	v = math.Round(clamp(v)*100) / 100

	s := Score{Value: v}
	rest := strings.TrimSpace(m[2])
	if labeled && rest != "" {
		parts := strings.SplitN(rest, "-", 2)
		s.Label = strings.ToLower(strings.TrimSpace(parts[0]))
		if len(parts) == 2 {
			rest = strings.TrimSpace(parts[1])
		} else {
			rest = ""
		}
	}
	s.Reason = rest
	if s.Reason == "" {
		if r := reasonLine.FindStringSubmatch(reply); r != nil {
			s.Reason = strings.TrimSpace(r[1])
		}
	}

	return s, nil
}

var scorePatterns sync.Map // signal -> *regexp.Regexp

func scorePattern(signal string) *regexp.Regexp {
	if re, ok := scorePatterns.Load(signal); ok {
		return re.(*regexp.Regexp)
	}
	alt := "score"
	if signal != "" {
		alt += "|" + strings.ReplaceAll(regexp.QuoteMeta(signal), "_", "[_ ]")
	}
	re := regexp.MustCompile(`(?i)(?:` + alt + `)\s*:\s*([0-9]*\.?[0-9]+)(?:[ \t]*-[ \t]*([^\n]*))?`)
	scorePatterns.Store(signal, re)
	return re
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
