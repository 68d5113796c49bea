package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/proposal-mcp/pkg/types"
)

func TestMerge_EmptyExistingCopiesIncoming(t *testing.T) {
	p := types.PartialRecord{
		"period_of_performance": "Oct 2021 - Sep 2023",
		"client_and_agency":     map[string]any{"agency": "DHS"},
		"technologies":          []any{"go", "postgres"},
		"headcount":             float64(12),
		"unknown":               nil,
		"sources":               []any{"alpha.docx"},
	}

	got := Merge(types.CanonicalRecord{Key: "alpha"}, p)

	want := map[string]any{
		"period_of_performance": "Oct 2021 - Sep 2023",
		"client_and_agency":     map[string]any{"agency": "DHS"},
		"technologies":          []any{"go", "postgres"},
		"headcount":             float64(12),
	}
	if diff := cmp.Diff(want, got.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"alpha.docx"}, got.Sources)
	assert.Equal(t, "alpha", got.Key)
}

func TestMerge_ObjectExistingWins(t *testing.T) {
	existing := types.CanonicalRecord{Fields: map[string]any{
		"client_and_agency": map[string]any{"agency": "DHS", "office": nil},
	}}
	p := types.PartialRecord{
		"client_and_agency": map[string]any{"agency": "DOD", "office": "CIO", "region": "East"},
	}

	got := Merge(existing, p)

	want := map[string]any{"agency": "DHS", "office": "CIO", "region": "East"}
	if diff := cmp.Diff(want, got.Fields["client_and_agency"]); diff != "" {
		t.Errorf("object merge mismatch (-want +got):\n%s", diff)
	}
}

func TestMerge_ListUnionStableOrder(t *testing.T) {
	existing := types.CanonicalRecord{Fields: map[string]any{
		"technologies": []any{"go", "kafka"},
		"roles":        []any{map[string]any{"title": "PM"}},
	}}
	p := types.PartialRecord{
		"technologies": []any{"kafka", "react", "go", "aws"},
		"roles":        []any{map[string]any{"title": "PM"}, map[string]any{"title": "Dev"}},
	}

	got := Merge(existing, p)

	assert.Equal(t, []any{"go", "kafka", "react", "aws"}, got.Fields["technologies"])
	assert.Equal(t, []any{map[string]any{"title": "PM"}, map[string]any{"title": "Dev"}}, got.Fields["roles"])
}

func TestMerge_ScalarPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		existing any
		incoming any
		want     any
	}{
		{"non-empty string kept", "Alpha", "Beta", "Alpha"},
		{"empty string filled", "", "Beta", "Beta"},
		{"zero filled", float64(0), float64(7), float64(7)},
		{"false filled", false, true, true},
		{"true kept", true, false, true},
		{"string kept against list", "Alpha", []any{"x"}, "Alpha"},
		{"empty list replaced by string", []any{}, "Beta", "Beta"},
		{"null incoming ignored", "Alpha", nil, "Alpha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing := types.CanonicalRecord{Fields: map[string]any{"f": tt.existing}}
			got := Merge(existing, types.PartialRecord{"f": tt.incoming})
			assert.Equal(t, tt.want, got.Fields["f"])
		})
	}
}

func TestMerge_Idempotent(t *testing.T) {
	r := types.CanonicalRecord{
		Key:     "alpha bridge",
		Fields:  map[string]any{"scope": "bridge work", "tags": []any{"civil"}},
		Sources: []string{"a.docx"},
	}
	p := types.PartialRecord{
		"scope":   "other",
		"tags":    []any{"civil", "steel"},
		"client":  map[string]any{"agency": "DOT", "office": nil},
		"empty":   "",
		"sources": []any{"b.docx"},
	}

	once := Merge(r, p)
	twice := Merge(once, p)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("second merge changed record (-once +twice):\n%s", diff)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	tags := []any{"a"}
	client := map[string]any{"agency": "DOT"}
	p := types.PartialRecord{"tags": tags, "client": client}
	existing := types.CanonicalRecord{Fields: map[string]any{"tags": []any{"z"}}}

	got := Merge(existing, p)
	got.Fields["client"].(map[string]any)["agency"] = "changed"

	assert.Equal(t, []any{"z"}, existing.Fields["tags"])
	assert.Equal(t, "DOT", client["agency"])
	assert.Equal(t, []any{"a"}, tags)
}

func TestMerge_SourcesUnion(t *testing.T) {
	existing := types.CanonicalRecord{Sources: []string{"a", "b"}}
	got := Merge(existing, types.PartialRecord{"sources": []any{"b", "c"}})
	assert.Equal(t, []string{"a", "b", "c"}, got.Sources)
	assert.NotContains(t, got.Fields, "sources")
}

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name     string
		cid      any
		filename string
		want     string
		ok       bool
	}{
		{"project name", map[string]any{"project_name": "  Alpha Bridge "}, "x.docx", "alpha bridge", true},
		{"short name skipped", map[string]any{"project_name": "Abc", "contract_name": "Alpha Bridge"}, "x.docx", "alpha bridge", true},
		{"non-string skipped", map[string]any{"project_name": 42, "name": "Alpha Bridge"}, "x.docx", "alpha bridge", true},
		{"candidate order", map[string]any{"name": "Later", "program_title": "First Program"}, "x.docx", "first program", true},
		{"filename fallback", map[string]any{"project_name": ""}, "Gamma Tower.v2.docx", "gamma tower", true},
		{"cid not an object", "Alpha Bridge", "dir/Delta.pdf", "delta", true},
		{"nothing usable", nil, "", "", false},
		{"dotfile", nil, ".docx", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IdentityKey(tt.cid, tt.filename)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAggregator_ThreePartialsOneRecord(t *testing.T) {
	agg := NewAggregator(UnnamedMerge, nil)

	partials := []struct {
		file string
		rec  types.PartialRecord
	}{
		{"a.docx", types.PartialRecord{
			IdentificationField: map[string]any{"project_name": "Alpha Bridge"},
			"scope":             "span repair",
		}},
		{"b.docx", types.PartialRecord{
			IdentificationField: map[string]any{"contract_name": "ALPHA BRIDGE "},
			"technologies":      []any{"bim"},
		}},
		{"c.docx", types.PartialRecord{
			IdentificationField: map[string]any{"project_name": "n/a", "reference_name": "alpha bridge"},
			"scope":             "ignored",
		}},
	}
	for _, p := range partials {
		key, ok := agg.Add(p.rec, p.file)
		require.True(t, ok)
		assert.Equal(t, "alpha bridge", key)
	}

	records := agg.Records()
	require.Len(t, records, 1)
	assert.ElementsMatch(t, []string{"a.docx", "b.docx", "c.docx"}, records[0].Sources)
	assert.Equal(t, "span repair", records[0].Fields["scope"])
	assert.Equal(t, []any{"bim"}, records[0].Fields["technologies"])
}

func TestAggregator_UnnamedPolicy(t *testing.T) {
	merged := NewAggregator(UnnamedMerge, nil)
	_, ok := merged.Add(types.PartialRecord{"scope": "x"}, "")
	require.True(t, ok)
	_, ok = merged.Add(types.PartialRecord{"client": "y"}, "")
	require.True(t, ok)
	require.Equal(t, 1, merged.Len())
	assert.Equal(t, UnnamedKey, merged.Records()[0].Key)

	dropped := NewAggregator(UnnamedDrop, nil)
	_, ok = dropped.Add(types.PartialRecord{"scope": "x"}, "")
	assert.False(t, ok)
	assert.Equal(t, 0, dropped.Len())
	assert.Equal(t, 1, dropped.Dropped())
}

func TestAggregator_FirstSeenOrder(t *testing.T) {
	agg := NewAggregator(UnnamedMerge, nil)
	agg.Add(types.PartialRecord{}, "zeta.txt")
	agg.Add(types.PartialRecord{}, "alpha.txt")
	agg.Add(types.PartialRecord{}, "zeta.txt")

	var keys []string
	for _, r := range agg.Records() {
		keys = append(keys, r.Key)
	}
	assert.Equal(t, []string{"zeta", "alpha"}, keys)
}
