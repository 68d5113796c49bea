package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/proposal-mcp/internal/chunker"
	"github.com/dshills/proposal-mcp/internal/pipeline"
	"github.com/dshills/proposal-mcp/internal/report"
	"github.com/dshills/proposal-mcp/internal/router"
	"github.com/dshills/proposal-mcp/internal/sections"
	"github.com/dshills/proposal-mcp/internal/storage"
	"github.com/dshills/proposal-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeNoSolicitation     = -32001 // Opportunity folder has no solicitation documents
	ErrorCodeAnalysisInProgress = -32002 // Another analysis is already running
	ErrorCodeNotAnalyzed        = -32003 // No stored run matches the selector
	ErrorCodeEmptyText          = -32004 // Text parameter is empty
)

const (
	maxReportedErrors = 5
	chunkSourceName   = "input"
	timeLayout        = "2006-01-02T15:04:05Z07:00"
)

// handleAnalyzeOpportunity handles the analyze_opportunity tool invocation
func (s *Server) handleAnalyzeOpportunity(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	outputDir := getStringDefault(args, "output_dir", s.cfg.OutputDir)

	if s.pipeline.Busy() {
		return nil, newMCPError(ErrorCodeAnalysisInProgress, "an analysis is already running", nil)
	}

	res, err := s.pipeline.Run(ctx, path)
	switch {
	case errors.Is(err, pipeline.ErrAnalysisInProgress):
		return nil, newMCPError(ErrorCodeAnalysisInProgress, "an analysis is already running", nil)
	case errors.Is(err, pipeline.ErrNoSolicitation):
		return nil, newMCPError(ErrorCodeNoSolicitation, "opportunity has no solicitation documents", map[string]interface{}{
			"path": path,
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "analysis failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats := res.Stats
	response := map[string]interface{}{
		"run_id":      res.RunID,
		"opportunity": res.Opportunity,
		"statistics": map[string]interface{}{
			"documents":        stats.Documents,
			"fragments":        stats.Fragments,
			"sections":         stats.Sections,
			"failed_calls":     stats.FailedCalls,
			"records":          stats.Records,
			"dropped_records":  stats.DroppedRecords,
			"themes":           stats.Themes,
			"coverage_gaps":    stats.Gaps,
			"compliance_items": stats.ComplianceItems,
			"duration_ms":      stats.Duration.Milliseconds(),
		},
		"coverage_gaps": gapList(res.Gaps.Uncovered),
	}

	if len(stats.ErrorMessages) > 0 {
		errorCount := len(stats.ErrorMessages)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.ErrorMessages[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.ErrorMessages
		}
	}

	if outputDir != "" {
		files, err := report.NewWriter(outputDir, s.logger).WriteAll(res)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to write report files", map[string]interface{}{
				"error":  err.Error(),
				"run_id": res.RunID,
			})
		}
		response["output_files"] = files
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetCoverageGaps handles the get_coverage_gaps tool invocation
func (s *Server) handleGetCoverageGaps(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.resolveRun(ctx, request)
	if err != nil {
		return nil, err
	}

	gaps, err := s.storage.ListGaps(ctx, run.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list coverage gaps", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := runHeader(run)
	response["gap_count"] = len(gaps)
	response["coverage_gaps"] = gapList(gaps)
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetPastPerformance handles the get_past_performance tool invocation
func (s *Server) handleGetPastPerformance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.resolveRun(ctx, request)
	if err != nil {
		return nil, err
	}

	recs, err := s.storage.ListRecords(ctx, run.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list records", map[string]interface{}{
			"error": err.Error(),
		})
	}

	projects := make([]map[string]interface{}, 0, len(recs))
	for _, rec := range recs {
		projects = append(projects, map[string]interface{}{
			"key":     rec.Key,
			"name":    router.ProjectName(rec),
			"sources": rec.Sources,
			"fields":  rec.Fields,
		})
	}

	response := runHeader(run)
	response["project_count"] = len(projects)
	response["projects"] = projects
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetThemes handles the get_themes tool invocation
func (s *Server) handleGetThemes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	run, err := s.resolveRun(ctx, request)
	if err != nil {
		return nil, err
	}

	themes, err := s.storage.ListThemes(ctx, run.ID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list themes", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := runHeader(run)
	response["theme_count"] = len(themes)
	response["themes"] = themes
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleChunkText handles the chunk_text tool invocation
func (s *Server) handleChunkText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, err := requireText(args)
	if err != nil {
		return nil, err
	}

	mode := chunker.Mode(getStringDefault(args, "mode", string(chunker.ModeParagraph)))
	if mode != chunker.ModeParagraph && mode != chunker.ModeWindow {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{string(chunker.ModeParagraph), string(chunker.ModeWindow)},
		})
	}

	maxSize := getIntDefault(args, "max_size", 0)
	if maxSize < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "max_size must be positive", map[string]interface{}{
			"param": "max_size",
			"value": maxSize,
		})
	}
	overlap := getIntDefault(args, "overlap", 0)
	if overlap < 0 {
		return nil, newMCPError(ErrorCodeInvalidParams, "overlap must not be negative", map[string]interface{}{
			"param": "overlap",
			"value": overlap,
		})
	}

	c := chunker.New(chunker.Config{Mode: mode, MaxSize: maxSize, Overlap: overlap})
	frags := c.Fragments(chunkSourceName, text, sections.Extract(text))

	chunks := make([]map[string]interface{}, 0, len(frags))
	for i, f := range frags {
		chunk := map[string]interface{}{
			"index":    i,
			"chunk_id": f.ID,
			"text":     f.Text,
			"start":    f.Range.Start,
			"end":      f.Range.End,
		}
		if f.SectionID != "" {
			chunk["section"] = f.SectionHeading
			chunk["page"] = f.Page
		}
		chunks = append(chunks, chunk)
	}

	response := map[string]interface{}{
		"mode":     c.Config().Mode,
		"max_size": c.Config().MaxSize,
		"count":    len(chunks),
		"chunks":   chunks,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleExtractSections handles the extract_sections tool invocation
func (s *Server) handleExtractSections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	text, err := requireText(args)
	if err != nil {
		return nil, err
	}

	secs := sections.Extract(text)
	response := map[string]interface{}{
		"count":    len(secs),
		"toc":      sections.TOC(secs),
		"sections": secs,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// resolveRun selects a stored run by run_id, or the latest completed run of
// an opportunity (any opportunity when neither is given)
func (s *Server) resolveRun(ctx context.Context, request mcp.CallToolRequest) (*storage.Run, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	if args == nil {
		args = map[string]interface{}{}
	}

	runID := getStringDefault(args, "run_id", "")
	opportunity := getStringDefault(args, "opportunity", "")

	var (
		run *storage.Run
		err error
	)
	if runID != "" {
		run, err = s.storage.GetRun(ctx, runID)
	} else {
		run, err = s.storage.LatestRun(ctx, opportunity)
	}

	if errors.Is(err, storage.ErrNotFound) {
		return nil, newMCPError(ErrorCodeNotAnalyzed, "no analysis run found. Use analyze_opportunity first.", map[string]interface{}{
			"run_id":      runID,
			"opportunity": opportunity,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load run", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return run, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// runHeader describes a stored run in tool responses
func runHeader(run *storage.Run) map[string]interface{} {
	header := map[string]interface{}{
		"run_id":      run.ID,
		"opportunity": run.Opportunity,
		"status":      run.Status,
		"started_at":  run.StartedAt.Format(timeLayout),
	}
	if !run.CompletedAt.IsZero() {
		header["completed_at"] = run.CompletedAt.Format(timeLayout)
	}
	return header
}

func gapList(gaps []types.Section) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, map[string]interface{}{
			"section_id": g.ID,
			"heading":    g.Heading,
			"page":       g.Page,
		})
	}
	return out
}

func requireText(args map[string]interface{}) (string, error) {
	text, ok := args["text"].(string)
	if !ok || text == "" {
		return "", newMCPError(ErrorCodeEmptyText, "text parameter is required and cannot be empty", map[string]interface{}{
			"param":  "text",
			"reason": "missing or empty",
		})
	}
	return text, nil
}

// validatePath checks that path is an absolute, readable directory
func validatePath(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
)
