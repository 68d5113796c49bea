// Package report writes a run's results as JSON files in an output directory.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dshills/proposal-mcp/internal/pipeline"
	"github.com/dshills/proposal-mcp/internal/sections"
	"github.com/dshills/proposal-mcp/pkg/types"
)

// Output file names
const (
	TaggedChunksFile     = "tagged_chunks.json"
	ParsedContextFile    = "parsed_context.json"
	CaptureFile          = "capture.json"
	EvalCriteriaFile     = "eval_criteria.json"
	PastPerfFile         = "past_perf_projects.json"
	KeywordFrequencyFile = "keyword_frequencies.json"
	KeywordThemesFile    = "keyword_themes.json"
	ComplianceFile       = "compliance.json"
	CoverageGapsFile     = "coverage_gaps.json"
)

// ParsedContext is the document structure artifact
type ParsedContext struct {
	TOC      []string        `json:"toc"`
	Sections []types.Section `json:"sections"`
}

// EvalCriteria lists the fragments that scored as evaluation criteria
type EvalCriteria struct {
	CriteriaChunks []pipeline.CriteriaFragment `json:"criteria_chunks"`
}

// Writer saves run artifacts under one directory
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter creates a Writer for dir. The directory is created on first write.
func NewWriter(dir string, logger *zap.Logger) *Writer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}
}

// Dir returns the output directory
func (w *Writer) Dir() string {
	return w.dir
}

// WriteAll writes every artifact of res and returns the written paths in
// write order
func (w *Writer) WriteAll(res *pipeline.Result) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	freq := make(map[string]int, len(res.TopTerms))
	for _, t := range res.TopTerms {
		freq[t.Term] = t.Count
	}

	artifacts := []struct {
		name  string
		value any
	}{
		{TaggedChunksFile, nonNil(res.Fragments)},
		{ParsedContextFile, ParsedContext{TOC: nonNil(sections.TOC(res.Sections)), Sections: nonNil(res.Sections)}},
		{CaptureFile, nonNil(res.Capture)},
		{EvalCriteriaFile, EvalCriteria{CriteriaChunks: nonNil(res.Criteria)}},
		{PastPerfFile, nonNil(res.Records)},
		{KeywordFrequencyFile, freq},
		{KeywordThemesFile, nonNil(res.Themes)},
		{ComplianceFile, nonNil(res.Compliance)},
		{CoverageGapsFile, nonNil(res.Gaps.Uncovered)},
	}

	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		path := filepath.Join(w.dir, a.name)
		if err := WriteJSON(path, a.value); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	w.logger.Info("wrote report", zap.String("dir", w.dir), zap.Int("files", len(paths)))
	return paths, nil
}

// WriteJSON writes v as indented JSON. The file is written under a temporary
// name and renamed into place, so readers never see a partial file.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

// nonNil keeps empty results rendering as [] rather than null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
