package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/proposal-mcp/pkg/types"
)

func kws(terms ...string) []types.Keyword {
	out := make([]types.Keyword, len(terms))
	for i, t := range terms {
		out[i] = types.Keyword{Term: t}
	}
	return out
}

func TestSimilarity(t *testing.T) {
	assert.GreaterOrEqual(t, Similarity("Cybersecurity", "Cyber Security"), 0.75)
	assert.InDelta(t, 1.0, Similarity("Agile Delivery", "agile delivery"), 1e-9)
	assert.Less(t, Similarity("Cloud Migration", "Workforce Training"), 0.75)
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
}

func TestMergeThemes_SimilarLabelsUnion(t *testing.T) {
	freq := map[string]int{"zero trust": 9, "siem": 4, "soc": 4, "ato": 1}
	got := MergeThemes([]types.Theme{
		{Label: "Cybersecurity", Keywords: kws("siem", "zero trust")},
		{Label: "Cloud Migration", Keywords: kws("aws")},
		{Label: "Cyber Security", Keywords: kws("soc", "siem", "ato")},
	}, freq, 0)

	require.Len(t, got, 2)
	assert.Equal(t, "Cybersecurity", got[0].Label)
	assert.Equal(t, []types.Keyword{
		{Term: "zero trust", Frequency: 9},
		{Term: "siem", Frequency: 4},
		{Term: "soc", Frequency: 4},
		{Term: "ato", Frequency: 1},
	}, got[0].Keywords)
	assert.Equal(t, "Cloud Migration", got[1].Label)
	assert.Equal(t, []types.Keyword{{Term: "aws", Frequency: 0}}, got[1].Keywords)
}

func TestMergeThemes_NotTransitive(t *testing.T) {
	// A~B and B~C, but not A~C
	a := "aaaaaaaa"
	b := "aaaaaabb"
	c := "aaaabbbb"
	require.GreaterOrEqual(t, Similarity(a, b), 0.75)
	require.GreaterOrEqual(t, Similarity(b, c), 0.75)
	require.Less(t, Similarity(a, c), 0.75)

	got := MergeThemes([]types.Theme{
		{Label: a, Keywords: kws("x")},
		{Label: b, Keywords: kws("y")},
		{Label: c, Keywords: kws("z")},
	}, nil, 0.75)

	require.Len(t, got, 2)
	assert.Equal(t, []string{"x", "y"}, got[0].Terms())
	assert.Equal(t, c, got[1].Label)

	// Starting from B pulls in both neighbours
	got = MergeThemes([]types.Theme{
		{Label: b, Keywords: kws("y")},
		{Label: a, Keywords: kws("x")},
		{Label: c, Keywords: kws("z")},
	}, nil, 0.75)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"x", "y", "z"}, got[0].Terms())
}

func TestMergeThemes_Empty(t *testing.T) {
	assert.Empty(t, MergeThemes(nil, nil, 0))
}

func TestMergeThemes_DedupesWithinCandidate(t *testing.T) {
	got := MergeThemes([]types.Theme{
		{Label: "Quality", Keywords: kws("iso 9001", "iso 9001", "", "cmmi")},
	}, map[string]int{"cmmi": 2}, 0)

	require.Len(t, got, 1)
	assert.Equal(t, []string{"cmmi", "iso 9001"}, got[0].Terms())
}
