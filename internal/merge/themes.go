package merge

import (
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/dshills/proposal-mcp/pkg/types"
)

// DefaultThemeThreshold is the label similarity at which two themes merge
const DefaultThemeThreshold = 0.75

// Similarity is the case-insensitive character-level matching ratio of two
// labels, in [0, 1]. Two empty labels are identical.
func Similarity(a, b string) float64 {
	return difflib.NewMatcher(runes(strings.ToLower(a)), runes(strings.ToLower(b))).Ratio()
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// MergeThemes collapses candidate themes with similar labels. It makes one
// left-to-right pass: each candidate not yet absorbed opens a theme under its
// own label and absorbs every later unabsorbed candidate whose label
// similarity is at least threshold. Earlier themes are never revisited, so
// the result depends on input order and is not transitive: with A~B and B~C
// but not A~C, C stays separate when A absorbs B first.
//
// Keywords of each theme are deduplicated, annotated with their frequency in
// freq (0 when absent) and sorted by frequency descending, then term.
// A threshold <= 0 uses DefaultThemeThreshold.
func MergeThemes(candidates []types.Theme, freq map[string]int, threshold float64) []types.Theme {
	if threshold <= 0 {
		threshold = DefaultThemeThreshold
	}

	merged := make([]types.Theme, 0, len(candidates))
	used := make([]bool, len(candidates))

	for i, base := range candidates {
		if used[i] {
			continue
		}
		terms := keywordSet{}
		terms.addAll(base.Keywords)

		for j := i + 1; j < len(candidates); j++ {
			if used[j] {
				continue
			}
			if Similarity(base.Label, candidates[j].Label) >= threshold {
				terms.addAll(candidates[j].Keywords)
				used[j] = true
			}
		}

		merged = append(merged, types.Theme{
			Label:    base.Label,
			Keywords: rankKeywords(terms.list(), freq),
		})
	}

	return merged
}

// keywordSet preserves first-insertion order so ranking ties stay stable
type keywordSet struct {
	seen  map[string]bool
	order []string
}

func (s *keywordSet) addAll(kws []types.Keyword) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	for _, k := range kws {
		if k.Term == "" || s.seen[k.Term] {
			continue
		}
		s.seen[k.Term] = true
		s.order = append(s.order, k.Term)
	}
}

func (s *keywordSet) list() []string {
	return s.order
}

func rankKeywords(terms []string, freq map[string]int) []types.Keyword {
	out := make([]types.Keyword, len(terms))
	for i, t := range terms {
		out[i] = types.Keyword{Term: t, Frequency: freq[t]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return out[i].Term < out[j].Term
	})
	return out
}
