package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// runSelectorProperties are shared by the tools that read a stored run
func runSelectorProperties() map[string]interface{} {
	return map[string]interface{}{
		"run_id": map[string]interface{}{
			"type":        "string",
			"description": "Identifier of a stored analysis run",
		},
		"opportunity": map[string]interface{}{
			"type":        "string",
			"description": "Opportunity folder name; selects its latest completed run when run_id is absent",
		},
	}
}

// analyzeOpportunityTool returns the tool definition for analyze_opportunity
func analyzeOpportunityTool() mcp.Tool {
	return mcp.Tool{
		Name:        "analyze_opportunity",
		Description: "Analyze an opportunity folder (solicitation/ and past_performance/) and store the results",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the opportunity folder",
				},
				"output_dir": map[string]interface{}{
					"type":        "string",
					"description": "Directory for the JSON report files; omitted means no files are written",
				},
			},
			Required: []string{"path"},
		},
	}
}

// getCoverageGapsTool returns the tool definition for get_coverage_gaps
func getCoverageGapsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_coverage_gaps",
		Description: "List the solicitation sections no covered fragment points at",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: runSelectorProperties(),
		},
	}
}

// getPastPerformanceTool returns the tool definition for get_past_performance
func getPastPerformanceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_past_performance",
		Description: "List the merged past-performance project records of a run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: runSelectorProperties(),
		},
	}
}

// getThemesTool returns the tool definition for get_themes
func getThemesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_themes",
		Description: "List the merged keyword themes of a run",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: runSelectorProperties(),
		},
	}
}

// chunkTextTool returns the tool definition for chunk_text
func chunkTextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "chunk_text",
		Description: "Split text into paragraph-packed or sliding-window chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to chunk",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "paragraph packs whole paragraphs; window cuts fixed-size overlapping windows",
					"enum":        []string{"paragraph", "window"},
					"default":     "paragraph",
				},
				"max_size": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum chunk size in characters (mode default when omitted)",
					"minimum":     1,
				},
				"overlap": map[string]interface{}{
					"type":        "integer",
					"description": "Characters shared by consecutive windows (window mode only)",
					"default":     0,
					"minimum":     0,
				},
			},
			Required: []string{"text"},
		},
	}
}

// extractSectionsTool returns the tool definition for extract_sections
func extractSectionsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "extract_sections",
		Description: "Detect numbered section headings and page markers in solicitation text",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Solicitation text",
				},
			},
			Required: []string{"text"},
		},
	}
}
