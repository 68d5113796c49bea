// Package mcp implements the Model Context Protocol (MCP) server for proposal analysis.
//
// The server exposes six tools to MCP clients:
//   - analyze_opportunity: run the full analysis over an opportunity folder
//   - get_coverage_gaps: list solicitation sections nothing addresses
//   - get_past_performance: list merged past-performance project records
//   - get_themes: list merged keyword themes
//   - chunk_text: split ad-hoc text into fragments
//   - extract_sections: detect numbered headings in ad-hoc text
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport. The server is started
// with:
//
//	proposal serve
//
// It listens on stdin and writes responses to stdout; logs go to stderr.
//
// # Tool: analyze_opportunity
//
//	Request:
//	{
//	  "name": "analyze_opportunity",
//	  "arguments": {
//	    "path": "/data/opportunities/acme-rfp",
//	    "output_dir": "/data/reports/acme-rfp"
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "01J9Z3...",
//	  "opportunity": "acme-rfp",
//	  "statistics": {"fragments": 212, "failed_calls": 3, "records": 7, "coverage_gaps": 4},
//	  "coverage_gaps": [{"section_id": "4.2", "heading": "Transition", "page": 12}],
//	  "output_files": ["/data/reports/acme-rfp/tagged_chunks.json", "..."]
//	}
//
// Only one analysis runs at a time; a second request while one is running
// fails immediately with -32002.
//
// # Stored runs
//
// get_coverage_gaps, get_past_performance and get_themes read a stored run.
// They accept run_id, or opportunity to select that folder's latest completed
// run. With neither, the latest completed run of any opportunity is used.
//
// # Error codes
//
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error (database, filesystem, etc.)
//   - -32001: Opportunity has no solicitation documents
//   - -32002: Analysis in progress
//   - -32003: No stored run matches
//   - -32004: Empty text
//
// # MCP Client Configuration
//
//	{
//	  "mcpServers": {
//	    "proposal": {
//	      "command": "/usr/local/bin/proposal",
//	      "args": ["serve"],
//	      "env": {
//	        "ANTHROPIC_API_KEY": "your-api-key"
//	      }
//	    }
//	  }
//	}
package mcp
