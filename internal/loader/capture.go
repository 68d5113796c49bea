package loader

import (
	"strings"
)

// Capture sections
const (
	SectionWinThemes      = "win_themes"
	SectionHotButtons     = "hot_buttons"
	SectionDiscriminators = "discriminators"
)

// headingLabels map a phrase found in a heading line to its section. Plural
// forms are covered by substring matching.
var headingLabels = []struct {
	phrase  string
	section string
}{
	{"win theme", SectionWinThemes},
	{"hot button", SectionHotButtons},
	{"pain point", SectionHotButtons},
	{"discriminator", SectionDiscriminators},
	{"differentiator", SectionDiscriminators},
}

// CaptureItem is one line of a capture document under a known heading
type CaptureItem struct {
	Section    string `json:"section"`
	Text       string `json:"text"`
	SourceFile string `json:"source_file"`
}

// CaptureContext groups capture items the way the tagging prompts use them
type CaptureContext struct {
	PainPoints      []string `json:"pain_points"`
	WinThemes       []string `json:"win_themes"`
	Differentiators []string `json:"differentiators"`
}

// Empty reports whether no capture items were found
func (c CaptureContext) Empty() bool {
	return len(c.PainPoints) == 0 && len(c.WinThemes) == 0 && len(c.Differentiators) == 0
}

// All returns every item, pain points first
func (c CaptureContext) All() []string {
	out := make([]string, 0, len(c.PainPoints)+len(c.WinThemes)+len(c.Differentiators))
	out = append(out, c.PainPoints...)
	out = append(out, c.WinThemes...)
	return append(out, c.Differentiators...)
}

func headingSection(line string) string {
	lower := strings.ToLower(line)
	for _, l := range headingLabels {
		if strings.Contains(lower, l.phrase) {
			return l.section
		}
	}
	return ""
}

// ParseCapture walks a capture document line by line. A line naming a known
// heading switches the current section; other non-empty lines become items of
// the current section. Lines before the first heading are ignored.
func ParseCapture(doc Document) []CaptureItem {
	var items []CaptureItem
	current := ""
	for _, raw := range strings.Split(doc.Text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if sec := headingSection(line); sec != "" {
			current = sec
			continue
		}
		if current == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "-*•"))
		if line == "" {
			continue
		}
		items = append(items, CaptureItem{Section: current, Text: line, SourceFile: doc.Name})
	}
	return items
}

// GroupCapture sorts items into pain points (hot buttons), win themes and
// differentiators (discriminators), keeping document order
func GroupCapture(items []CaptureItem) CaptureContext {
	var c CaptureContext
	for _, it := range items {
		switch it.Section {
		case SectionHotButtons:
			c.PainPoints = append(c.PainPoints, it.Text)
		case SectionWinThemes:
			c.WinThemes = append(c.WinThemes, it.Text)
		case SectionDiscriminators:
			c.Differentiators = append(c.Differentiators, it.Text)
		}
	}
	return c
}

// LoadCapture parses and groups every capture document
func LoadCapture(docs []Document) ([]CaptureItem, CaptureContext) {
	var items []CaptureItem
	for _, d := range docs {
		items = append(items, ParseCapture(d)...)
	}
	return items, GroupCapture(items)
}
