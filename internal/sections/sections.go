// Package sections detects numbered headings in solicitation text and places
// fragments under them.
package sections

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dshills/proposal-mcp/pkg/types"
)

var (
	headingPattern = regexp.MustCompile(`^(\d{1,2}(\.\d{1,2})*)\s+(.+)`)
	pagePattern    = regexp.MustCompile(`page\s*(\d+)`)
)

// Extract scans text line by line and returns the numbered sections in the
// order they appear. A heading seen twice (same id and text) is kept once.
// A line mentioning "page N" moves the page counter for headings after it;
// the page check runs after heading detection, so a heading line that names
// its own page is still recorded with the previous page.
func Extract(text string) []types.Section {
	sections := make([]types.Section, 0)
	seen := make(map[string]bool)
	page := 1
	offset := 0

	for _, raw := range strings.SplitAfter(text, "\n") {
		lineStart := offset
		offset += len(raw)

		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if m := headingPattern.FindStringSubmatch(line); m != nil {
			sec := types.Section{
				ID:      m[1],
				Heading: strings.TrimSpace(m[3]),
				Page:    page,
				Offset:  lineStart,
			}
			full := sec.FullHeading()
			if !seen[full] {
				seen[full] = true
				sections = append(sections, sec)
			}
		}

		lower := strings.ToLower(line)
		if strings.Contains(lower, "page") {
			if m := pagePattern.FindStringSubmatch(lower); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					page = n
				}
			}
		}
	}

	return sections
}

// TOC returns the table of contents as "<id> <heading>" strings
func TOC(sections []types.Section) []string {
	toc := make([]string, len(sections))
	for i := range sections {
		toc[i] = sections[i].FullHeading()
	}
	return toc
}

// Locate returns the section whose heading is the last one at or before
// offset. Sections must come from the same document as the offset and be in
// extraction order. ok is false when offset precedes every heading.
func Locate(sections []types.Section, offset int) (types.Section, bool) {
	// Offsets are non-decreasing in extraction order
	i := sort.Search(len(sections), func(i int) bool {
		return sections[i].Offset > offset
	})
	if i == 0 {
		return types.Section{}, false
	}
	return sections[i-1], true
}

// Index maps section id to section. Later duplicates of an id (same number,
// different heading text) do not replace the first.
func Index(sections []types.Section) map[string]types.Section {
	idx := make(map[string]types.Section, len(sections))
	for _, s := range sections {
		if _, ok := idx[s.ID]; !ok {
			idx[s.ID] = s
		}
	}
	return idx
}

// Breadcrumb renders the location prefix injected ahead of fragment text in
// prompts. heading is the full "<id> <text>" heading; empty renders as
// "Unknown".
func Breadcrumb(heading string, page int) string {
	if heading == "" {
		heading = "Unknown"
	}
	return fmt.Sprintf("Breadcrumb: %s > Page %d", heading, page)
}

// WithBreadcrumb prefixes text with its breadcrumb and a blank line
func WithBreadcrumb(text, heading string, page int) string {
	return Breadcrumb(heading, page) + "\n\n" + text
}
