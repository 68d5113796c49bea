package pipeline

import (
	"github.com/dshills/proposal-mcp/internal/chunker"
	"github.com/dshills/proposal-mcp/internal/config"
	"github.com/dshills/proposal-mcp/internal/coverage"
	"github.com/dshills/proposal-mcp/internal/merge"
	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/internal/router"
	"github.com/dshills/proposal-mcp/internal/terms"
)

// DefaultCriteriaThreshold is the eval-criteria score at which a fragment's
// text joins the criteria context for win-theme mapping
const DefaultCriteriaThreshold = 0.7

// Options tunes one pipeline
type Options struct {
	ParagraphSize int
	WindowSize    int
	WindowOverlap int
	Workers       int

	Coverage          coverage.Options
	CriteriaThreshold float64
	ThemeThreshold    float64
	TopTerms          int
	TermBatchChars    int
	UnnamedPolicy     merge.UnnamedPolicy

	MatchPastPerf bool
	Compliance    bool

	// CacheSize > 0 gives each run its own completion cache of that size
	CacheSize int

	// FragmentLimit keeps only the first n solicitation fragments; 0 keeps all
	FragmentLimit int
}

// DefaultOptions returns the standard settings
func DefaultOptions() Options {
	return Options{
		ParagraphSize:     chunker.DefaultParagraphSize,
		WindowSize:        chunker.DefaultWindowSize,
		WindowOverlap:     chunker.DefaultWindowOverlap,
		Workers:           router.DefaultWorkers,
		Coverage:          coverage.DefaultOptions(),
		CriteriaThreshold: DefaultCriteriaThreshold,
		ThemeThreshold:    merge.DefaultThemeThreshold,
		TopTerms:          terms.DefaultTopN,
		TermBatchChars:    terms.DefaultBatchChars,
		UnnamedPolicy:     merge.UnnamedMerge,
		MatchPastPerf:     true,
		Compliance:        true,
		CacheSize:         oracle.DefaultCacheSize,
	}
}

// OptionsFromConfig maps a validated configuration onto pipeline options
func OptionsFromConfig(cfg *config.Config) Options {
	a := cfg.Analysis
	opts := Options{
		ParagraphSize:     cfg.Chunking.ParagraphSize,
		WindowSize:        cfg.Chunking.WindowSize,
		WindowOverlap:     cfg.Chunking.WindowOverlap,
		Workers:           a.Workers,
		Coverage:          coverage.Options{Threshold: a.CoverageThreshold, Signals: a.CoverageSignals},
		CriteriaThreshold: a.CriteriaThreshold,
		ThemeThreshold:    a.ThemeThreshold,
		TopTerms:          a.TopTerms,
		TermBatchChars:    a.TermBatchChars,
		UnnamedPolicy:     merge.UnnamedPolicy(a.UnnamedPolicy),
		MatchPastPerf:     a.MatchPastPerf,
		Compliance:        a.Compliance,
		FragmentLimit:     a.FragmentLimit,
		CacheSize:         cfg.Oracle.CacheSize,
	}
	return opts
}
