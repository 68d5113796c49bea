package types

// Well-known classifier signals attached to fragments.
const (
	SignalExpectation  = "expectation_identifier"
	SignalEvalCriteria = "eval_criteria_identifier"
	SignalWinTheme     = "win_theme_mapper"
	SignalPastPerf     = "pp_matcher"
)

// ByteRange is a half-open [Start, End) byte interval within a source document
type ByteRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Len returns the number of bytes covered by the range
func (r ByteRange) Len() int {
	return r.End - r.Start
}

// Fragment is a bounded text unit cut from a source document
type Fragment struct {
	// Identification
	ID             string `json:"chunk_id"`
	SourceDocument string `json:"source_document"`

	// Content
	Text  string    `json:"text"`
	Range ByteRange `json:"byte_range"`

	// Location hints. SectionID is empty when the fragment precedes the first
	// detected heading or came from a document without numbered headings.
	SectionID      string `json:"section_id,omitempty"`
	SectionHeading string `json:"section_heading,omitempty"`
	Page           int    `json:"page,omitempty"`

	ContainsBullets bool `json:"contains_bullets"`

	// Additive metadata written by the tagging stages
	Tags Tags `json:"agent_tags"`
}

// Validate checks the fragment's structural invariants
func (f *Fragment) Validate() error {
	if f.ID == "" {
		return ErrEmptyFragmentID
	}
	if f.Text == "" {
		return ErrEmptyContent
	}
	if f.SourceDocument == "" {
		return ErrMissingSource
	}
	if f.Range.Start < 0 || f.Range.Start > f.Range.End {
		return ErrInvalidRange
	}
	return nil
}

// Match is one relevance annotation linking a fragment to a known entity
type Match struct {
	ProjectName   string   `json:"project_name"`
	Source        string   `json:"source"`
	Confidence    float64  `json:"confidence"`
	MatchedFields []string `json:"matched_fields,omitempty"`
}

// Validate checks that the match carries a usable confidence
func (m *Match) Validate() error {
	if m.Confidence < 0 || m.Confidence > 1 {
		return ErrInvalidConfidence
	}
	return nil
}

// Tags holds classifier output attached to a fragment
type Tags struct {
	Scores  map[string]float64 `json:"scores,omitempty"`
	Labels  map[string]string  `json:"labels,omitempty"`
	Matches map[string][]Match `json:"matches,omitempty"`
}

// SetScore records a signal score, replacing any earlier value for the same signal
func (t *Tags) SetScore(signal string, score float64) {
	if t.Scores == nil {
		t.Scores = make(map[string]float64)
	}
	t.Scores[signal] = score
}

// Score returns the score for a signal, or 0 when the signal never ran
func (t *Tags) Score(signal string) float64 {
	return t.Scores[signal]
}

// SetLabel records a categorical label emitted alongside a score
func (t *Tags) SetLabel(signal, label string) {
	if t.Labels == nil {
		t.Labels = make(map[string]string)
	}
	t.Labels[signal] = label
}

// AddMatches appends relevance matches for a signal. Empty input is a no-op so
// that a signal key is only present when it carries at least one match.
func (t *Tags) AddMatches(signal string, matches ...Match) {
	if len(matches) == 0 {
		return
	}
	if t.Matches == nil {
		t.Matches = make(map[string][]Match)
	}
	t.Matches[signal] = append(t.Matches[signal], matches...)
}

// HasMatches reports whether any signal attached at least one match
func (t *Tags) HasMatches() bool {
	for _, m := range t.Matches {
		if len(m) > 0 {
			return true
		}
	}
	return false
}
