// Package loader reads an opportunity folder into plain-text documents.
//
// Layout:
//
//	<root>/solicitation/      solicitation documents and capture* files
//	<root>/past_performance/  past-performance writeups
//
// Only text formats are read: .txt and .md verbatim, .html and .htm reduced
// to their text. Anything else is skipped with a warning.
package loader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Folder names under an opportunity root
const (
	SolicitationDir    = "solicitation"
	PastPerformanceDir = "past_performance"
	capturePrefix      = "capture"
)

// ErrUnsupportedFormat is returned for files the loader cannot read as text
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Document is one loaded file
type Document struct {
	Name string // slash-separated path relative to the loaded folder, used as the source reference
	Path string
	Text string
}

// Opportunity is the loaded content of one opportunity folder
type Opportunity struct {
	Root            string
	Solicitation    []Document
	Capture         []Document
	PastPerformance []Document
}

// Loader reads documents from disk
type Loader struct {
	logger *zap.Logger
}

// New creates a Loader
func New(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// LoadOpportunity reads the solicitation and past-performance folders under
// root. Capture files (name starting with "capture") are split out of the
// solicitation set. A missing past-performance folder is not an error.
func (l *Loader) LoadOpportunity(root string) (*Opportunity, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("opportunity root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opportunity root %s is not a directory", root)
	}

	opp := &Opportunity{Root: root}

	solDocs, err := l.LoadDir(filepath.Join(root, SolicitationDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	for _, d := range solDocs {
		if IsCapture(path.Base(d.Name)) {
			opp.Capture = append(opp.Capture, d)
		} else {
			opp.Solicitation = append(opp.Solicitation, d)
		}
	}

	ppDocs, err := l.LoadDir(filepath.Join(root, PastPerformanceDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	opp.PastPerformance = ppDocs

	l.logger.Info("loaded opportunity",
		zap.String("root", root),
		zap.Int("solicitation", len(opp.Solicitation)),
		zap.Int("capture", len(opp.Capture)),
		zap.Int("past_performance", len(opp.PastPerformance)))

	return opp, nil
}

// LoadDir reads every supported file under dir, recursively, in lexical
// path order. Document names are relative to dir so files sharing a base
// name in different subfolders stay distinct.
func (l *Loader) LoadDir(dir string) ([]Document, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		doc, err := ReadDocument(p)
		if err != nil {
			l.logger.Warn("skipping document", zap.String("path", p), zap.Error(err))
			continue
		}
		if rel, err := filepath.Rel(dir, p); err == nil {
			doc.Name = filepath.ToSlash(rel)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ReadDocument loads one file as text
func ReadDocument(path string) (Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !Supported(path) {
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("failed to read file: %w", err)
	}

	text := string(data)
	if ext == ".html" || ext == ".htm" {
		text = HTMLText(text)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	return Document{Name: filepath.Base(path), Path: path, Text: text}, nil
}

// Supported reports whether the loader can read path
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".html", ".htm":
		return true
	}
	return false
}

// IsCapture reports whether a file name marks a capture document
func IsCapture(name string) bool {
	return strings.HasPrefix(strings.ToLower(name), capturePrefix)
}

// JoinText concatenates document texts with blank lines
func JoinText(docs []Document) string {
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Text
	}
	return strings.Join(parts, "\n\n")
}
