package types

// Keyword is a term with its corpus frequency
type Keyword struct {
	Term      string `json:"term"`
	Frequency int    `json:"frequency"`
}

// Theme is a labeled cluster of related keywords
type Theme struct {
	Label    string    `json:"theme"`
	Keywords []Keyword `json:"keywords"`
}

// Validate checks if the theme is usable
func (t *Theme) Validate() error {
	if t.Label == "" {
		return ErrEmptyThemeLabel
	}
	return nil
}

// Terms returns the keyword terms in their current order
func (t *Theme) Terms() []string {
	out := make([]string, len(t.Keywords))
	for i, k := range t.Keywords {
		out[i] = k.Term
	}
	return out
}
