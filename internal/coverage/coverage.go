// Package coverage cross-references tagged fragments against a document's
// sections to find the sections nothing in the analysis speaks to.
package coverage

import (
	"github.com/dshills/proposal-mcp/pkg/types"
)

// DefaultThreshold is the score a signal must exceed to count as coverage
const DefaultThreshold = 0.6

// DefaultSignals are the classifier scores consulted for coverage
var DefaultSignals = []string{
	types.SignalExpectation,
	types.SignalEvalCriteria,
	types.SignalWinTheme,
}

// Options tunes what counts as coverage
type Options struct {
	Threshold float64
	Signals   []string

	// MatchSignals restricts which match annotations count. Empty means any.
	MatchSignals []string
}

// DefaultOptions returns the standard coverage rules
func DefaultOptions() Options {
	return Options{
		Threshold: DefaultThreshold,
		Signals:   append([]string(nil), DefaultSignals...),
	}
}

// Covered reports whether a fragment counts as covering its section: some
// listed signal scores strictly above the threshold, or the fragment carries
// at least one relevance match
func Covered(f *types.Fragment, opts Options) bool {
	for _, sig := range opts.Signals {
		if f.Tags.Score(sig) > opts.Threshold {
			return true
		}
	}

	if len(opts.MatchSignals) == 0 {
		return f.Tags.HasMatches()
	}
	for _, sig := range opts.MatchSignals {
		if len(f.Tags.Matches[sig]) > 0 {
			return true
		}
	}
	return false
}

// Analyze returns the sections with no covering fragment, in the order given.
// Fragments without a section id never cover anything.
func Analyze(frags []*types.Fragment, secs []types.Section, opts Options) types.GapReport {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Signals == nil {
		opts.Signals = DefaultSignals
	}

	coveredIDs := make(map[string]bool)
	for _, f := range frags {
		if f == nil || f.SectionID == "" {
			continue
		}
		if Covered(f, opts) {
			coveredIDs[f.SectionID] = true
		}
	}

	report := types.GapReport{
		Uncovered:     make([]types.Section, 0),
		TotalSections: len(secs),
	}
	for _, s := range secs {
		if coveredIDs[s.ID] {
			report.Covered++
			continue
		}
		report.Uncovered = append(report.Uncovered, s)
	}

	return report
}
