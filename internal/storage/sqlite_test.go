package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/proposal-mcp/pkg/types"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage, err := NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NotNil(t, storage)
	t.Cleanup(func() { _ = storage.Close() })
	return storage
}

func createRun(t *testing.T, s Storage, opportunity string) *Run {
	t.Helper()
	run := &Run{Opportunity: opportunity, RootPath: "/data/" + opportunity}
	require.NoError(t, s.CreateRun(context.Background(), run))
	return run
}

func TestCreateAndGetRun(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	run := createRun(t, s, "acme")
	assert.Len(t, run.ID, 26)
	assert.Equal(t, RunRunning, run.Status)

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme", got.Opportunity)
	assert.Equal(t, "/data/acme", got.RootPath)
	assert.True(t, got.CompletedAt.IsZero())
}

func TestGetRun_NotFound(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateRun(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	run.Status = RunCompleted
	run.FragmentCount = 12
	run.FailedCalls = 1
	run.GapCount = 3
	run.CompletedAt = time.Now().UTC()
	require.NoError(t, s.UpdateRun(ctx, run))

	got, err := s.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, 12, got.FragmentCount)
	assert.Equal(t, 1, got.FailedCalls)
	assert.Equal(t, 3, got.GapCount)
	assert.False(t, got.CompletedAt.IsZero())

	err = s.UpdateRun(ctx, &Run{ID: "missing", Status: RunFailed})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLatestRun(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.LatestRun(ctx, "acme")
	assert.ErrorIs(t, err, ErrNotFound)

	first := createRun(t, s, "acme")
	first.Status = RunCompleted
	require.NoError(t, s.UpdateRun(ctx, first))

	second := createRun(t, s, "acme")
	second.Status = RunCompleted
	require.NoError(t, s.UpdateRun(ctx, second))

	// running runs are never "latest"
	createRun(t, s, "acme")

	other := createRun(t, s, "globex")
	other.Status = RunCompleted
	require.NoError(t, s.UpdateRun(ctx, other))

	got, err := s.LatestRun(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)

	got, err = s.LatestRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, other.ID, got.ID)

	runs, err := s.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, runs, 4)
}

func TestNewRunIDOrdered(t *testing.T) {
	now := time.Now()
	a := NewRunID(now)
	b := NewRunID(now)
	c := NewRunID(now.Add(time.Second))
	assert.Less(t, a, b)
	assert.Less(t, b, c)
}

func TestFragmentsRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	f1 := &types.Fragment{
		ID:             "f1",
		SourceDocument: "rfp.txt",
		Text:           "The contractor shall provide help desk support.",
		Range:          types.ByteRange{Start: 0, End: 47},
		SectionID:      "3.1",
		SectionHeading: "Help Desk",
		Page:           4,
	}
	f1.Tags.SetScore(types.SignalExpectation, 0.8)
	f1.Tags.SetLabel(types.SignalWinTheme, "none")
	f1.Tags.AddMatches(types.SignalPastPerf, types.Match{ProjectName: "Alpha", Source: "alpha.txt", Confidence: 0.9})

	f2 := &types.Fragment{ID: "f2", SourceDocument: "rfp.txt", Text: "- bullet", Range: types.ByteRange{Start: 49, End: 57}, ContainsBullets: true}

	require.NoError(t, s.SaveFragments(ctx, run.ID, []*types.Fragment{f1, f2}))

	got, err := s.ListFragments(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	if diff := cmp.Diff(f1, got[0]); diff != "" {
		t.Errorf("fragment mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "f2", got[1].ID)
	assert.True(t, got[1].ContainsBullets)
	assert.Empty(t, got[1].SectionID)

	// saving again replaces
	require.NoError(t, s.SaveFragments(ctx, run.ID, []*types.Fragment{f2}))
	got, err = s.ListFragments(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSaveWithoutRunID(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	assert.ErrorIs(t, s.SaveFragments(ctx, "", nil), ErrEmptyRunID)
	assert.ErrorIs(t, s.SaveRecords(ctx, "", nil), ErrEmptyRunID)
	assert.ErrorIs(t, s.SaveThemes(ctx, "", nil), ErrEmptyRunID)
}

func TestSectionsAndGaps(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	secs := []types.Section{
		{ID: "1", Heading: "Scope", Page: 1, Offset: 0, Source: "rfp.txt"},
		{ID: "1.1", Heading: "Background", Page: 1, Offset: 40, Source: "rfp.txt"},
		{ID: "2", Heading: "Tasks", Page: 2, Offset: 120, Source: "rfp.txt"},
	}
	require.NoError(t, s.SaveSections(ctx, run.ID, secs, map[string]bool{"1.1": true}))

	rows, err := s.ListSections(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.True(t, rows[1].Covered)
	assert.Equal(t, secs[2], rows[2].Section)

	gaps, err := s.ListGaps(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, []types.Section{secs[0], secs[2]}, gaps)
}

func TestRecordsRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	recs := []types.CanonicalRecord{
		{
			Key: "alpha modernization",
			Fields: map[string]any{
				"contract_identification": map[string]any{"project_name": "Alpha Modernization"},
				"technologies":            []any{"go", "postgres"},
			},
			Sources: []string{"alpha.txt", "alpha-2.txt"},
		},
		{Key: "unnamed project", Fields: map[string]any{"client": "Navy"}},
	}
	require.NoError(t, s.SaveRecords(ctx, run.ID, recs))

	got, err := s.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, got, 2)
	if diff := cmp.Diff(recs[0], got[0]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{}, got[1].Sources)
}

func TestThemesRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	themes := []types.Theme{
		{Label: "Cybersecurity", Keywords: []types.Keyword{{Term: "zero trust", Frequency: 12}, {Term: "rmf", Frequency: 3}}},
		{Label: "Cloud", Keywords: []types.Keyword{{Term: "aws", Frequency: 7}}},
	}
	require.NoError(t, s.SaveThemes(ctx, run.ID, themes))

	got, err := s.ListThemes(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, themes, got)
}

func TestComplianceRoundTrip(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	items := []types.ComplianceItem{
		{Kind: types.ComplianceResponse, Type: "format", Requirement: "Page limit 20", Source: "Section L", FragmentID: "f1"},
		{Kind: types.CompliancePerformance, Requirement: "Monthly status report"},
	}
	require.NoError(t, s.SaveCompliance(ctx, run.ID, items))

	got, err := s.ListCompliance(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, items, got)
}

func TestDeleteRunCascades(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	run := createRun(t, s, "acme")

	require.NoError(t, s.SaveThemes(ctx, run.ID, []types.Theme{{Label: "Cloud"}}))
	require.NoError(t, s.DeleteRun(ctx, run.ID))

	themes, err := s.ListThemes(ctx, run.ID)
	require.NoError(t, err)
	assert.Empty(t, themes)
	assert.ErrorIs(t, s.DeleteRun(ctx, run.ID), ErrNotFound)
}

func TestTransactionRollback(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	run := &Run{Opportunity: "acme", RootPath: "/data/acme"}
	require.NoError(t, tx.CreateRun(ctx, run))
	require.NoError(t, tx.SaveThemes(ctx, run.ID, []types.Theme{{Label: "Cloud"}}))

	_, err = tx.BeginTx(ctx)
	assert.Error(t, err)

	require.NoError(t, tx.Rollback())

	_, err = s.GetRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactionCommit(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	tx, err := s.BeginTx(ctx)
	require.NoError(t, err)
	run := &Run{Opportunity: "acme", RootPath: "/data/acme"}
	require.NoError(t, tx.CreateRun(ctx, run))
	require.NoError(t, tx.SaveSections(ctx, run.ID, []types.Section{{ID: "1", Heading: "Scope"}}, nil))
	require.NoError(t, tx.Commit())

	gaps, err := s.ListGaps(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, gaps, 1)
}

func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "proposal.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
}
