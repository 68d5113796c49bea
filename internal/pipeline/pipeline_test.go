package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/internal/router"
	"github.com/dshills/proposal-mcp/internal/storage"
	"github.com/dshills/proposal-mcp/pkg/types"
)

const rfpText = `1 Introduction
The agency seeks help desk modernization.

2 Evaluation Criteria
Proposals are scored on technical merit.

3 Security
The contractor shall maintain zero trust controls.

4 Transition
The incumbent will hand over operations within days.
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func setupOpportunity(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "acme-rfp")
	writeFile(t, filepath.Join(root, "solicitation", "rfp.txt"), rfpText)
	writeFile(t, filepath.Join(root, "solicitation", "capture_plan.txt"), "Win Themes\nRapid transition\n")
	writeFile(t, filepath.Join(root, "past_performance", "alpha.txt"), "Project Alpha modernized the help desk using Go.")
	writeFile(t, filepath.Join(root, "past_performance", "alpha2.txt"), "Alpha phase two moved records to Postgres.")
	writeFile(t, filepath.Join(root, "past_performance", "beta.txt"), "Beta writeup the model cannot read.")
	return root
}

// scripted answers each capability from the request content
func scripted() *oracle.MockProvider {
	return oracle.NewMockProvider("").Respond(func(req oracle.Request) (string, error) {
		switch req.Capability {
		case types.SignalExpectation:
			if strings.Contains(req.Text, "help desk") && strings.Contains(req.Prompt, "Rapid transition") {
				return "Score: 0.9\nReason: explicit need", nil
			}
			return "Score: 0.3\nReason: weak", nil
		case types.SignalEvalCriteria:
			if strings.Contains(req.Text, "scored") {
				return "eval_criteria_identifier: 0.95 - evaluation factors", nil
			}
			return "eval_criteria_identifier: 0.1 - nothing", nil
		case types.SignalWinTheme:
			if strings.Contains(req.Prompt, "Proposals are scored") {
				return "win_theme_mapper: 0.2 - win_theme - loosely aligned", nil
			}
			return "win_theme_mapper: 0.2 - none - no criteria", nil
		case router.CapProjectMetadata:
			switch {
			case strings.Contains(req.Text, "Project Alpha"):
				return `{"contract_identification": {"project_name": "Alpha Modernization"}, "technologies": ["go"]}`, nil
			case strings.Contains(req.Text, "Alpha phase two"):
				return `Here you go: {"contract_identification": {"project_name": "alpha modernization "}, "technologies": ["postgres"],}`, nil
			}
			return "", errors.New("model unavailable")
		case types.SignalPastPerf:
			if strings.Contains(req.Text, "zero trust") {
				return `{"relevant": true, "confidence": 0.8, "matched_fields": ["security"]}`, nil
			}
			return `{"relevant": false}`, nil
		case router.CapCompliance:
			if strings.Contains(req.Text, "shall") {
				return `{"proposal_response": [], "project_performance": [{"type": "Security", "requirement": "Maintain zero trust controls"}]}`, nil
			}
			return `{"proposal_response": [], "project_performance": []}`, nil
		case router.CapThemeGrouping:
			return `{"themes": [
				{"theme": "Security", "keywords": ["zero trust", "controls"]},
				{"theme": "Security Ops", "keywords": ["• contractor", "controls"]},
				{"theme": "Modernization", "keywords": ["help desk"]}
			]}`, nil
		}
		return "", errors.New("unexpected capability " + req.Capability)
	})
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.ParagraphSize = 80
	return opts
}

func TestRun(t *testing.T) {
	root := setupOpportunity(t)
	p := New(scripted(), nil, zaptest.NewLogger(t), testOptions())

	res, err := p.Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "acme-rfp", res.Opportunity)
	assert.Empty(t, res.RunID)

	// fragments and sections
	require.Len(t, res.Fragments, 4)
	require.Len(t, res.Sections, 4)
	for i, f := range res.Fragments {
		assert.Equal(t, res.Sections[i].ID, f.SectionID)
		assert.Equal(t, "rfp.txt", f.SourceDocument)
	}

	// capture
	assert.Equal(t, []string{"Rapid transition"}, res.CaptureContext.WinThemes)

	// score signals
	assert.Equal(t, 0.9, res.Fragments[0].Tags.Score(types.SignalExpectation))
	assert.Equal(t, 0.95, res.Fragments[1].Tags.Score(types.SignalEvalCriteria))
	for _, f := range res.Fragments {
		assert.Equal(t, "win_theme", f.Tags.Labels[types.SignalWinTheme])
	}

	// criteria
	require.Len(t, res.Criteria, 1)
	assert.Equal(t, res.Fragments[1].ID, res.Criteria[0].FragmentID)
	assert.Equal(t, res.Fragments[1].Text, res.CriteriaText)

	// past performance
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, "alpha modernization", rec.Key)
	assert.Equal(t, []string{"alpha.txt", "alpha2.txt"}, rec.Sources)
	assert.Equal(t, []any{"go", "postgres"}, rec.Fields["technologies"])
	assert.Contains(t, res.Stats.ErrorMessages, "beta.txt: no project metadata extracted")

	matches := res.Fragments[2].Tags.Matches[types.SignalPastPerf]
	require.Len(t, matches, 1)
	assert.Equal(t, "Alpha Modernization", matches[0].ProjectName)
	assert.Equal(t, "alpha.txt", matches[0].Source)
	assert.False(t, res.Fragments[0].Tags.HasMatches())

	// compliance
	require.Len(t, res.Compliance, 1)
	assert.Equal(t, types.CompliancePerformance, res.Compliance[0].Kind)
	assert.Equal(t, "security", res.Compliance[0].Type)
	assert.Equal(t, res.Fragments[2].ID, res.Compliance[0].FragmentID)

	// themes: "Security Ops" folds into "Security"
	require.Len(t, res.Themes, 2)
	assert.Equal(t, "Security", res.Themes[0].Label)
	assert.ElementsMatch(t, []string{"zero trust", "controls", "contractor"}, res.Themes[0].Terms())
	assert.Equal(t, "Modernization", res.Themes[1].Label)
	assert.NotEmpty(t, res.TopTerms)

	// coverage: only the transition section is untouched
	assert.Equal(t, []string{"4"}, res.Gaps.UncoveredIDs())

	assert.Equal(t, 4, res.Stats.Fragments)
	assert.Equal(t, 1, res.Stats.FailedCalls)
	assert.Equal(t, 1, res.Stats.Records)
	assert.Equal(t, 2, res.Stats.Themes)
	assert.Equal(t, 1, res.Stats.Gaps)
	assert.Equal(t, 5, res.Stats.Documents)
}

func TestRunPersists(t *testing.T) {
	root := setupOpportunity(t)
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	p := New(scripted(), store, zaptest.NewLogger(t), testOptions())
	res, err := p.Run(context.Background(), root)
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	ctx := context.Background()
	run, err := store.LatestRun(ctx, "acme-rfp")
	require.NoError(t, err)
	assert.Equal(t, res.RunID, run.ID)
	assert.Equal(t, storage.RunCompleted, run.Status)
	assert.Equal(t, 4, run.FragmentCount)
	assert.Equal(t, 1, run.GapCount)

	gaps, err := store.ListGaps(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, gaps, 1)
	assert.Equal(t, "4", gaps[0].ID)
	assert.Equal(t, "rfp.txt", gaps[0].Source)

	frags, err := store.ListFragments(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, frags, 4)
	assert.Equal(t, 0.95, frags[1].Tags.Score(types.SignalEvalCriteria))

	recs, err := store.ListRecords(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	themes, err := store.ListThemes(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, themes, 2)

	items, err := store.ListCompliance(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRunWithoutSolicitation(t *testing.T) {
	root := filepath.Join(t.TempDir(), "empty")
	writeFile(t, filepath.Join(root, "past_performance", "alpha.txt"), "x")

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	p := New(scripted(), store, nil, testOptions())
	_, err = p.Run(context.Background(), root)
	assert.ErrorIs(t, err, ErrNoSolicitation)

	runs, err := store.ListRuns(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "no solicitation")
}

func TestRunOracleDown(t *testing.T) {
	root := setupOpportunity(t)
	down := oracle.NewMockProvider("")
	p := New(down, nil, nil, testOptions())

	res, err := p.Run(context.Background(), root)
	require.NoError(t, err, "oracle failures never abort a run")

	for _, f := range res.Fragments {
		assert.Equal(t, 0.0, f.Tags.Score(types.SignalExpectation))
		assert.Equal(t, router.LabelError, f.Tags.Labels[types.SignalWinTheme])
	}
	assert.Empty(t, res.Records)
	assert.Empty(t, res.Themes)
	assert.Len(t, res.Gaps.Uncovered, 4)
	assert.Greater(t, res.Stats.FailedCalls, 0)
}

func TestRunInProgress(t *testing.T) {
	p := New(scripted(), nil, nil, testOptions())
	require.True(t, p.lock.TryAcquire())
	assert.True(t, p.Busy())

	_, err := p.Run(context.Background(), setupOpportunity(t))
	assert.ErrorIs(t, err, ErrAnalysisInProgress)

	p.lock.Release()
	assert.False(t, p.Busy())
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(scripted(), nil, nil, testOptions())
	_, err := p.Run(ctx, setupOpportunity(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFragmentLimitAndSwitches(t *testing.T) {
	root := setupOpportunity(t)
	mock := scripted()

	opts := testOptions()
	opts.FragmentLimit = 2
	opts.MatchPastPerf = false
	opts.Compliance = false

	res, err := New(mock, nil, nil, opts).Run(context.Background(), root)
	require.NoError(t, err)

	assert.Len(t, res.Fragments, 2)
	assert.Equal(t, 0, mock.Calls(types.SignalPastPerf))
	assert.Equal(t, 0, mock.Calls(router.CapCompliance))
	assert.Empty(t, res.Compliance)
	// sections beyond the limit have no fragments and show as gaps
	assert.Equal(t, []string{"3", "4"}, res.Gaps.UncoveredIDs())
}

func TestRunUnnamedDrop(t *testing.T) {
	root := filepath.Join(t.TempDir(), "opp")
	writeFile(t, filepath.Join(root, "solicitation", "rfp.txt"), "1 Scope\nWork.")
	writeFile(t, filepath.Join(root, "past_performance", ".txt"), "anonymous")

	mock := oracle.NewMockProvider("Score: 0.1").
		Reply(router.CapProjectMetadata, `{"contract_identification": {"project_name": "n/a"}}`).
		Reply(router.CapThemeGrouping, `{"themes": []}`).
		Reply(router.CapCompliance, `{}`)

	opts := testOptions()
	opts.UnnamedPolicy = "drop"
	res, err := New(mock, nil, nil, opts).Run(context.Background(), root)
	require.NoError(t, err)

	// "n/a" is too short to be a name and ".txt" has no stem to fall back on
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.Stats.DroppedRecords)
}

func TestRunSameNameInSubfolders(t *testing.T) {
	root := filepath.Join(t.TempDir(), "opp")
	writeFile(t, filepath.Join(root, "solicitation", "a", "rfp.txt"), rfpText)
	writeFile(t, filepath.Join(root, "solicitation", "b", "rfp.txt"), rfpText)

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	res, err := New(scripted(), store, zaptest.NewLogger(t), testOptions()).Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, res.Fragments, 8)
	ids := make(map[string]bool, len(res.Fragments))
	for _, f := range res.Fragments {
		assert.False(t, ids[f.ID], "duplicate fragment id %s", f.ID)
		ids[f.ID] = true
	}
	assert.Equal(t, "a/rfp.txt", res.Fragments[0].SourceDocument)
	assert.Equal(t, "b/rfp.txt", res.Fragments[4].SourceDocument)

	run, err := store.LatestRun(context.Background(), "opp")
	require.NoError(t, err)
	assert.Equal(t, storage.RunCompleted, run.Status)
	assert.Equal(t, 8, run.FragmentCount)
}

// failingTx fails every theme write
type failingTx struct {
	storage.Tx
}

func (failingTx) SaveThemes(context.Context, string, []types.Theme) error {
	return errors.New("disk full")
}

type failingStore struct {
	storage.Storage
}

func (s failingStore) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.Storage.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	return failingTx{tx}, nil
}

func TestRunSaveFailureMarksRunFailed(t *testing.T) {
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	p := New(scripted(), failingStore{store}, zaptest.NewLogger(t), testOptions())
	_, err = p.Run(context.Background(), setupOpportunity(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	ctx := context.Background()
	runs, err := store.ListRuns(ctx, 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, storage.RunFailed, runs[0].Status)
	assert.Contains(t, runs[0].Error, "disk full")
	assert.False(t, runs[0].CompletedAt.IsZero())

	frags, err := store.ListFragments(ctx, runs[0].ID)
	require.NoError(t, err)
	assert.Empty(t, frags, "rolled back")
}

func TestRunRecordSourcesAreFileNames(t *testing.T) {
	root := filepath.Join(t.TempDir(), "opp")
	writeFile(t, filepath.Join(root, "solicitation", "rfp.txt"), "1 Scope\nWork.")
	writeFile(t, filepath.Join(root, "past_performance", "alpha.txt"), "Project Alpha")

	mock := oracle.NewMockProvider("Score: 0.1").
		Reply(router.CapProjectMetadata, `{"contract_identification": {"project_name": "Alpha"}, "sources": ["brochure.pdf"]}`).
		Reply(router.CapThemeGrouping, `{"themes": []}`).
		Reply(router.CapCompliance, `{}`)

	opts := testOptions()
	opts.MatchPastPerf = false
	res, err := New(mock, nil, nil, opts).Run(context.Background(), root)
	require.NoError(t, err)

	require.Len(t, res.Records, 1)
	assert.Equal(t, []string{"alpha.txt"}, res.Records[0].Sources)
}
