package types

// Section is a numbered heading detected in a solicitation
type Section struct {
	ID      string `json:"id"`      // dotted numeric path, e.g. "4.2"
	Heading string `json:"heading"` // heading text without the numeric prefix
	Page    int    `json:"page"`

	// Offset is the byte offset of the heading line within the document the
	// section was extracted from. Used to place fragments under sections.
	Offset int    `json:"offset"`
	Source string `json:"source_document,omitempty"`
}

// FullHeading returns the table-of-contents form "<id> <heading>"
func (s *Section) FullHeading() string {
	return s.ID + " " + s.Heading
}

// Validate checks if the section has an identifier
func (s *Section) Validate() error {
	if s.ID == "" {
		return ErrEmptySectionID
	}
	return nil
}

// GapReport lists sections that no covered fragment points at
type GapReport struct {
	Uncovered     []Section `json:"uncovered"`
	TotalSections int       `json:"total_sections"`
	Covered       int       `json:"covered_sections"`
}

// UncoveredIDs returns the ids of the uncovered sections in report order
func (g *GapReport) UncoveredIDs() []string {
	ids := make([]string, len(g.Uncovered))
	for i, s := range g.Uncovered {
		ids[i] = s.ID
	}
	return ids
}
