package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/proposal-mcp/pkg/types"
)

func TestExpectation_Prompt(t *testing.T) {
	f := &types.Fragment{ID: "f", Text: "  Offerors shall submit by May 1.  ", SectionID: "4.2", SectionHeading: "4.2 Submission", Page: 3}

	withThemes := Expectation([]string{"Zero downtime", "Local presence"}).Prompt(f)
	assert.Contains(t, withThemes, "* Zero downtime\n\n* Local presence")
	assert.Contains(t, withThemes, "Breadcrumb: 4.2 Submission > Page 3\n\nOfferors shall submit by May 1.")
	assert.Contains(t, withThemes, "Score: <float between 0.0 and 1.0>")

	plain := Expectation(nil).Prompt(f)
	assert.NotContains(t, plain, "known client win themes")
}

func TestExpectation_ContextBounded(t *testing.T) {
	items := []string{strings.Repeat("x", 5000)}
	prompt := Expectation(items).Prompt(&types.Fragment{Text: "t"})
	assert.Less(t, len(prompt), 5000)
}

func TestWinThemeMapper_Prompt(t *testing.T) {
	c := WinThemeMapper(Strategy{
		PainPoints:      []string{"legacy outages", "slow onboarding"},
		WinThemes:       []string{"modernization"},
		Differentiators: []string{"cleared staff"},
	}, "Technical approach is most important.")

	assert.True(t, c.Labeled)
	assert.Equal(t, types.SignalWinTheme, c.Name)

	prompt := c.Prompt(&types.Fragment{Text: "chunk body"})
	assert.Contains(t, prompt, "legacy outages\n- slow onboarding")
	assert.Contains(t, prompt, "Technical approach is most important.")
	assert.Contains(t, prompt, "chunk body")
	assert.NotContains(t, prompt, "Breadcrumb")
}

func TestProjectName(t *testing.T) {
	tests := []struct {
		name string
		rec  types.CanonicalRecord
		want string
	}{
		{"program title first", types.CanonicalRecord{Fields: map[string]any{
			"contract_identification": map[string]any{"project_name": "P", "program_title": "Title"},
		}}, "Title"},
		{"source fallback", types.CanonicalRecord{Sources: []string{"a.docx"}}, "a.docx"},
		{"unnamed", types.CanonicalRecord{}, "Unnamed Project"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ProjectName(tt.rec))
		})
	}
}

func TestMatchFromObject(t *testing.T) {
	rec := types.CanonicalRecord{
		Key:     "alpha bridge",
		Fields:  map[string]any{"contract_identification": map[string]any{"contract_name": "Alpha Bridge"}},
		Sources: []string{"alpha.docx"},
	}

	m, ok := MatchFromObject(map[string]any{
		"relevant":       true,
		"confidence":     0.8,
		"matched_fields": []any{"scope", 3, ""},
	}, rec)
	require.True(t, ok)
	assert.Equal(t, types.Match{ProjectName: "Alpha Bridge", Source: "alpha.docx", Confidence: 0.8, MatchedFields: []string{"scope"}}, m)

	_, ok = MatchFromObject(map[string]any{"relevant": false, "confidence": 0.9}, rec)
	assert.False(t, ok)
	_, ok = MatchFromObject(map[string]any{"relevant": "yes"}, rec)
	assert.False(t, ok)
}

func TestComplianceFromObject(t *testing.T) {
	f := &types.Fragment{ID: "c1", SourceDocument: "rfp.txt"}
	items := ComplianceFromObject(map[string]any{
		"proposal_response": []any{
			map[string]any{"type": "Formatting", "requirement": "12 point font"},
			map[string]any{"type": "x", "requirement": " "},
			"not an object",
		},
		"project_performance": []any{
			map[string]any{"type": "sla", "requirement": "99.9% uptime"},
		},
	}, f)

	require.Len(t, items, 2)
	assert.Equal(t, types.ComplianceItem{Kind: types.ComplianceResponse, Type: "formatting", Requirement: "12 point font", Source: "rfp.txt", FragmentID: "c1"}, items[0])
	assert.Equal(t, types.CompliancePerformance, items[1].Kind)
}

func TestThemesFromObject(t *testing.T) {
	themes := ThemesFromObject(map[string]any{
		"themes": []any{
			map[string]any{"theme": "Cloud", "keywords": []any{"aws", " aws ", 7}},
			map[string]any{"theme": "", "keywords": []any{"x"}},
			map[string]any{"theme": "Security"},
		},
	}, func(in []string) []string {
		out := []string{}
		seen := map[string]bool{}
		for _, s := range in {
			s = strings.TrimSpace(s)
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
		return out
	})

	require.Len(t, themes, 2)
	assert.Equal(t, "Cloud", themes[0].Label)
	assert.Equal(t, []string{"aws"}, themes[0].Terms())
	assert.Equal(t, "Security", themes[1].Label)
	assert.Empty(t, themes[1].Keywords)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", truncate("héllo", 4))
	assert.Equal(t, "hi", truncate("hi", 4))
}
