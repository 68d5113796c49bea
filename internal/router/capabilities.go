package router

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dshills/proposal-mcp/internal/sections"
	"github.com/dshills/proposal-mcp/pkg/types"
)

// Object capability names
const (
	CapProjectMetadata = "project_metadata"
	CapThemeGrouping   = "theme_grouping"
	CapCompliance      = "compliance"
)

// Prompt size bounds, in runes
const (
	maxCaptureContext = 4000
	maxStrategyList   = 1000
	maxCriteriaText   = 3000
	maxMatchChunk     = 2500
	maxMatchProject   = 2500
)

// Strategy is the capture team's view of the pursuit
type Strategy struct {
	PainPoints      []string
	WinThemes       []string
	Differentiators []string
}

// locate renders the fragment's breadcrumb when it sits under a heading
func locate(f *types.Fragment) string {
	if f.SectionID == "" {
		return strings.TrimSpace(f.Text)
	}
	return sections.WithBreadcrumb(strings.TrimSpace(f.Text), f.SectionHeading, f.Page)
}

// Expectation scores how strongly a fragment states client expectations.
// captureItems are known win themes offered as context.
func Expectation(captureItems []string) Capability {
	var known string
	if len(captureItems) > 0 {
		lines := make([]string, len(captureItems))
		for i, item := range captureItems {
			lines[i] = "* " + item
		}
		known = truncate(strings.Join(lines, "\n\n"), maxCaptureContext)
	}

	return Capability{
		Name: types.SignalExpectation,
		Kind: KindScore,
		Prompt: func(f *types.Fragment) string {
			var b strings.Builder
			b.WriteString("You are a federal RFP response analyst.\n\n")
			b.WriteString("Below is a chunk of a solicitation. Identify whether it contains implicit or explicit expectations from the client.\n\n")
			b.WriteString("Return a score from 0.0 (no expectations) to 1.0 (strong expectations) and explain briefly.\n\n")
			if known != "" {
				fmt.Fprintf(&b, "Here are the known client win themes:\n%s\n\n", known)
			}
			fmt.Fprintf(&b, "Chunk:\n\"\"\"\n%s\n\"\"\"\n\n", locate(f))
			b.WriteString("Respond in this format:\nScore: <float between 0.0 and 1.0>\nReason: <short explanation>")
			return b.String()
		},
	}
}

// EvalCriteria scores whether a fragment describes evaluation criteria or the
// basis for award
func EvalCriteria() Capability {
	return Capability{
		Name: types.SignalEvalCriteria,
		Kind: KindScore,
		Prompt: func(f *types.Fragment) string {
			return fmt.Sprintf(`You are analyzing a government RFP.

Read the chunk of text below and determine whether it describes evaluation criteria, basis for award, technical scoring factors, or proposal evaluation methods.

### Chunk:
%s

### Instructions:
1. Respond in the format:
    %s: <confidence score> - <1-line rationale>
2. Score 0.0 if nothing evaluation-related is found.
3. Score 1.0 if the chunk clearly contains evaluation factors or scoring instructions.

Only respond in this format.`, locate(f), types.SignalEvalCriteria)
		},
	}
}

// WinThemeMapper scores alignment with the capture strategy and labels the
// fragment as a pain point, win theme or differentiator
func WinThemeMapper(s Strategy, criteria string) Capability {
	pain := truncate(strings.Join(s.PainPoints, "\n- "), maxStrategyList)
	themes := truncate(strings.Join(s.WinThemes, "\n- "), maxStrategyList)
	diffs := truncate(strings.Join(s.Differentiators, "\n- "), maxStrategyList)
	criteria = truncate(strings.TrimSpace(criteria), maxCriteriaText)

	return Capability{
		Name:    types.SignalWinTheme,
		Kind:    KindScore,
		Labeled: true,
		Prompt: func(f *types.Fragment) string {
			return fmt.Sprintf(`You are a proposal strategist helping analyze a government RFP.

Tag the chunk below by how well it aligns with the win themes, pain points, and differentiators captured by the team and with what the client is actually scoring.

### Pain Points:
%s

### Win Themes:
%s

### Differentiators:
%s

### Evaluation Criteria (from RFP):
%s

### Chunk:
%s

### Instructions:
1. Determine if this chunk expresses or implies a pain point, a win theme, or a differentiator.
2. Respond in the format:
    %s: <confidence score> - <classification> - <1-line rationale>

Example:
%s: 0.85 - differentiator - Highlights rapid deployment capability

Only respond in this format.`, pain, themes, diffs, criteria, locate(f), types.SignalWinTheme, types.SignalWinTheme)
		},
	}
}

// ProjectMetadata extracts one past-performance partial record per fragment
func ProjectMetadata() Capability {
	return Capability{
		Name: CapProjectMetadata,
		Kind: KindObject,
		Prompt: func(f *types.Fragment) string {
			return fmt.Sprintf(`You are extracting structured metadata about a past performance project from a proposal document.
Return a JSON object describing the project.

%s

---

Required top-level keys:
- period_of_performance (string, e.g. "Oct 2021 - Sep 2023")
- contract_identification (object with project_name, contract_name, program_title, contract_number)
- client_and_agency
- scope_and_work_type
- financials_and_labor
- teaming_and_delivery
- performance_and_quality
- compliance_and_standards
- contract_strategy

Each section should include details such as technologies used, delivery model, delivery locations, headcount, roles, performance metrics, SLA adherence and compliance levels.
If any section or field is unknown, use null, 0, false, or an empty list as appropriate.
Return only a valid JSON object.`, strings.TrimSpace(f.Text))
		},
	}
}

// ProjectName is the display name of a canonical past-performance record:
// program title, contract name or project name from its identification, then
// its first source, then "Unnamed Project"
func ProjectName(rec types.CanonicalRecord) string {
	if cid, ok := rec.Fields["contract_identification"].(map[string]any); ok {
		for _, k := range []string{"program_title", "contract_name", "project_name"} {
			if s, ok := cid[k].(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	if len(rec.Sources) > 0 {
		return rec.Sources[0]
	}
	return "Unnamed Project"
}

// PastPerfMatch asks whether a fragment is relevant to one known project.
// The reply object carries relevant, confidence and matched_fields.
func PastPerfMatch(rec types.CanonicalRecord) Capability {
	project, err := json.Marshal(rec)
	if err != nil {
		project = []byte(fmt.Sprintf("%q", ProjectName(rec)))
	}
	projectText := truncate(string(project), maxMatchProject)

	return Capability{
		Name: types.SignalPastPerf,
		Kind: KindObject,
		Prompt: func(f *types.Fragment) string {
			return fmt.Sprintf(`You are a past performance relevance assessor.

A proposal chunk is shown below. Determine whether the chunk is relevant to the past performance project described.
Return a JSON object with these fields:
- relevant: true | false
- confidence: float between 0 and 1
- matched_fields: list of matching themes or fields from the past performance

---
Chunk:
%s

---
Project Metadata:
%s

Return only a JSON object.`, truncate(f.Text, maxMatchChunk), projectText)
		},
	}
}

// MatchFromObject converts a pp_matcher reply into a Match. ok is false when
// the reply says the fragment is not relevant.
func MatchFromObject(obj map[string]any, rec types.CanonicalRecord) (types.Match, bool) {
	relevant, _ := obj["relevant"].(bool)
	if !relevant {
		return types.Match{}, false
	}

	m := types.Match{ProjectName: ProjectName(rec), Source: "unknown"}
	if len(rec.Sources) > 0 {
		m.Source = rec.Sources[0]
	}
	if c, ok := obj["confidence"].(float64); ok {
		m.Confidence = clamp(c)
	}
	if fields, ok := obj["matched_fields"].([]any); ok {
		for _, v := range fields {
			if s, ok := v.(string); ok && s != "" {
				m.MatchedFields = append(m.MatchedFields, s)
			}
		}
	}
	return m, true
}

// Compliance extracts mandatory requirements from a solicitation excerpt
func Compliance() Capability {
	return Capability{
		Name: CapCompliance,
		Kind: KindObject,
		Prompt: func(f *types.Fragment) string {
			return fmt.Sprintf(`You are a compliance auditor helping extract mandatory requirements from a government solicitation.

Given the following solicitation excerpt, identify:
1. Proposal Response Compliance (formatting, submission instructions, page limits, etc.)
2. Project Performance Compliance (anything the contractor must do post-award: SLAs, standards, deliverables, etc.)

Return two lists of JSON objects, each with:
- type: one-word category (e.g., "formatting", "sla", "security", "submission")
- requirement: short plain-English statement of what's required

---
%s
---

Respond with this JSON format:
{
  "%s": [...],
  "%s": [...]
}
Only return valid JSON.`, f.Text, types.ComplianceResponse, types.CompliancePerformance)
		},
	}
}

// ComplianceFromObject converts a compliance reply into items attributed to f
func ComplianceFromObject(obj map[string]any, f *types.Fragment) []types.ComplianceItem {
	var items []types.ComplianceItem
	for _, kind := range []types.ComplianceKind{types.ComplianceResponse, types.CompliancePerformance} {
		list, _ := obj[string(kind)].([]any)
		for _, raw := range list {
			entry, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			req, _ := entry["requirement"].(string)
			if strings.TrimSpace(req) == "" {
				continue
			}
			typ, _ := entry["type"].(string)
			items = append(items, types.ComplianceItem{
				Kind:        kind,
				Type:        strings.ToLower(strings.TrimSpace(typ)),
				Requirement: strings.TrimSpace(req),
				Source:      f.SourceDocument,
				FragmentID:  f.ID,
			})
		}
	}
	return items
}

// ThemeGrouping groups frequent terms into named themes. The fragment text
// is the JSON array of terms.
func ThemeGrouping() Capability {
	return Capability{
		Name: CapThemeGrouping,
		Kind: KindObject,
		Prompt: func(f *types.Fragment) string {
			return fmt.Sprintf(`You are a theme mapping analyst.
Given the following list of frequently used terms from a government solicitation, group them into logical themes.

Return a JSON object with:
- theme: the name of the theme (e.g., Cybersecurity, Data Management)
- keywords: the list of related terms under that theme

Terms:
%s

Only return valid JSON:
{
  "themes": [
    { "theme": "...", "keywords": ["...", "..."] }
  ]
}`, f.Text)
		},
	}
}

// ThemesFromObject reads candidate themes from a theme_grouping reply, in
// reply order. clean normalizes each keyword list.
func ThemesFromObject(obj map[string]any, clean func([]string) []string) []types.Theme {
	list, _ := obj["themes"].([]any)
	themes := make([]types.Theme, 0, len(list))
	for _, raw := range list {
		entry, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		label, _ := entry["theme"].(string)
		label = strings.TrimSpace(label)
		if label == "" {
			continue
		}

		var words []string
		kws, _ := entry["keywords"].([]any)
		for _, k := range kws {
			if s, ok := k.(string); ok {
				words = append(words, s)
			}
		}
		if clean != nil {
			words = clean(words)
		}

		theme := types.Theme{Label: label, Keywords: make([]types.Keyword, len(words))}
		for i, w := range words {
			theme.Keywords[i] = types.Keyword{Term: w}
		}
		themes = append(themes, theme)
	}
	return themes
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
