package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/proposal-mcp/internal/chunker"
	"github.com/dshills/proposal-mcp/internal/coverage"
	"github.com/dshills/proposal-mcp/internal/loader"
	"github.com/dshills/proposal-mcp/internal/merge"
	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/internal/router"
	"github.com/dshills/proposal-mcp/internal/sections"
	"github.com/dshills/proposal-mcp/internal/storage"
	"github.com/dshills/proposal-mcp/internal/terms"
	"github.com/dshills/proposal-mcp/pkg/types"
)

// ErrNoSolicitation is returned when an opportunity has no readable
// solicitation documents
var ErrNoSolicitation = errors.New("no solicitation documents found")

// themeCallID identifies the single theme-grouping call in logs
const themeCallID = "keyword_terms"

// Pipeline coordinates one analysis: load -> chunk -> tag -> merge -> cover -> store
type Pipeline struct {
	loader  *loader.Loader
	oracle  oracle.Oracle
	storage storage.Storage // nil disables persistence
	logger  *zap.Logger
	opts    Options
	lock    RunLock
}

// Statistics contains statistics about one run
type Statistics struct {
	Documents       int
	Fragments       int
	Sections        int
	FailedCalls     int
	Records         int
	DroppedRecords  int
	Themes          int
	Gaps            int
	ComplianceItems int
	Duration        time.Duration
	ErrorMessages   []string
}

// CriteriaFragment is a fragment whose eval-criteria score cleared the
// criteria threshold
type CriteriaFragment struct {
	FragmentID string `json:"chunk_id"`
	Text       string `json:"text"`
}

// Result is everything one run produced
type Result struct {
	RunID       string
	Opportunity string
	Root        string

	Fragments      []*types.Fragment
	Sections       []types.Section
	Capture        []loader.CaptureItem
	CaptureContext loader.CaptureContext
	Criteria       []CriteriaFragment
	CriteriaText   string
	Records        []types.CanonicalRecord
	TopTerms       []terms.Term
	Themes         []types.Theme
	Compliance     []types.ComplianceItem
	Gaps           types.GapReport

	Stats Statistics
}

// New creates a Pipeline. store may be nil.
func New(o oracle.Oracle, store storage.Storage, logger *zap.Logger, opts Options) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		loader:  loader.New(logger),
		oracle:  o,
		storage: store,
		logger:  logger,
		opts:    opts,
	}
}

// Busy reports whether a run is executing
func (p *Pipeline) Busy() bool {
	return p.lock.Held()
}

// Run loads the opportunity folder at root and analyzes it. Only one run may
// execute at a time; a concurrent call fails with ErrAnalysisInProgress.
func (p *Pipeline) Run(ctx context.Context, root string) (*Result, error) {
	if !p.lock.TryAcquire() {
		return nil, ErrAnalysisInProgress
	}
	defer p.lock.Release()

	opp, err := p.loader.LoadOpportunity(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load opportunity: %w", err)
	}
	return p.Analyze(ctx, opp)
}

// Analyze runs every stage over an already loaded opportunity and persists
// the result when storage is configured. Per-fragment oracle failures are
// counted and logged; they never abort the run.
func (p *Pipeline) Analyze(ctx context.Context, opp *loader.Opportunity) (*Result, error) {
	start := time.Now()
	res := &Result{
		Opportunity: filepath.Base(opp.Root),
		Root:        opp.Root,
		Stats:       Statistics{ErrorMessages: make([]string, 0)},
	}

	var run *storage.Run
	if p.storage != nil {
		run = &storage.Run{Opportunity: res.Opportunity, RootPath: opp.Root}
		if err := p.storage.CreateRun(ctx, run); err != nil {
			return nil, fmt.Errorf("failed to create run: %w", err)
		}
		res.RunID = run.ID
	}

	err := p.newAnalysis().analyze(ctx, opp, res)
	res.Stats.Duration = time.Since(start)

	if run != nil {
		if perr := p.persist(ctx, run, res, err); perr != nil {
			err = perr
		}
	}
	if err != nil {
		return nil, err
	}

	p.logger.Info("analysis complete",
		zap.String("opportunity", res.Opportunity),
		zap.String("run", res.RunID),
		zap.Int("fragments", res.Stats.Fragments),
		zap.Int("failed_calls", res.Stats.FailedCalls),
		zap.Int("records", res.Stats.Records),
		zap.Int("themes", res.Stats.Themes),
		zap.Int("gaps", res.Stats.Gaps),
		zap.Duration("duration", res.Stats.Duration))

	return res, nil
}

// analysis is the state of one run. Its router owns the run's completion
// cache, so cached replies are dropped when the run ends.
type analysis struct {
	*Pipeline
	router *router.Router
}

func (p *Pipeline) newAnalysis() *analysis {
	o := p.oracle
	if p.opts.CacheSize > 0 {
		o = oracle.WithCache(o, oracle.NewCache(p.opts.CacheSize))
	}
	return &analysis{Pipeline: p, router: router.New(o, p.logger, p.opts.Workers)}
}

func (p *analysis) analyze(ctx context.Context, opp *loader.Opportunity, res *Result) error {
	stats := &res.Stats
	stats.Documents = len(opp.Solicitation) + len(opp.Capture) + len(opp.PastPerformance)

	if len(opp.Solicitation) == 0 {
		return ErrNoSolicitation
	}

	// Chunk and place fragments under their sections
	frags, secs := p.fragment(opp.Solicitation)
	if p.opts.FragmentLimit > 0 && len(frags) > p.opts.FragmentLimit {
		frags = frags[:p.opts.FragmentLimit]
	}
	res.Fragments = frags
	res.Sections = secs
	stats.Fragments = len(frags)
	stats.Sections = len(secs)

	// Capture context
	res.Capture, res.CaptureContext = loader.LoadCapture(opp.Capture)

	stages := []func(context.Context, *loader.Opportunity, *Result) error{
		p.tagSolicitation,
		p.pastPerformance,
		p.compliance,
		p.themes,
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := stage(ctx, opp, res); err != nil {
			return err
		}
	}

	res.Gaps = coverage.Analyze(res.Fragments, res.Sections, p.opts.Coverage)
	stats.Gaps = len(res.Gaps.Uncovered)
	return nil
}

// fragment chunks each solicitation document and extracts its sections
func (p *Pipeline) fragment(docs []loader.Document) ([]*types.Fragment, []types.Section) {
	c := chunker.New(chunker.Config{Mode: chunker.ModeParagraph, MaxSize: p.opts.ParagraphSize})

	var (
		frags []*types.Fragment
		secs  []types.Section
	)
	for _, doc := range docs {
		docSecs := sections.Extract(doc.Text)
		for i := range docSecs {
			docSecs[i].Source = doc.Name
		}
		secs = append(secs, docSecs...)
		frags = append(frags, c.Fragments(doc.Name, doc.Text, docSecs)...)
	}
	return frags, secs
}

// tagSolicitation runs the three score signals. Win-theme mapping sees the
// text of fragments that scored as evaluation criteria.
func (p *analysis) tagSolicitation(ctx context.Context, _ *loader.Opportunity, res *Result) error {
	capture := res.CaptureContext

	res.Stats.FailedCalls += p.router.Tag(ctx, res.Fragments, router.Expectation(capture.All()))
	res.Stats.FailedCalls += p.router.Tag(ctx, res.Fragments, router.EvalCriteria())

	res.Criteria = make([]CriteriaFragment, 0)
	texts := make([]string, 0)
	for _, f := range res.Fragments {
		if f.Tags.Score(types.SignalEvalCriteria) >= p.opts.CriteriaThreshold {
			res.Criteria = append(res.Criteria, CriteriaFragment{FragmentID: f.ID, Text: f.Text})
			texts = append(texts, f.Text)
		}
	}
	res.CriteriaText = strings.Join(texts, "\n\n")

	strategy := router.Strategy{
		PainPoints:      capture.PainPoints,
		WinThemes:       capture.WinThemes,
		Differentiators: capture.Differentiators,
	}
	res.Stats.FailedCalls += p.router.Tag(ctx, res.Fragments, router.WinThemeMapper(strategy, res.CriteriaText))
	return nil
}

// pastPerformance extracts one record per writeup from its windows, folds
// records sharing an identity, then optionally matches fragments to them
func (p *analysis) pastPerformance(ctx context.Context, opp *loader.Opportunity, res *Result) error {
	agg := merge.NewAggregator(p.opts.UnnamedPolicy, p.logger)
	win := chunker.New(chunker.Config{Mode: chunker.ModeWindow, MaxSize: p.opts.WindowSize, Overlap: p.opts.WindowOverlap})
	capability := router.ProjectMetadata()

	for _, doc := range opp.PastPerformance {
		windows := win.Fragments(doc.Name, doc.Text, nil)
		if len(windows) == 0 {
			continue
		}

		var docRec types.CanonicalRecord
		extracted := 0
		for _, out := range p.router.RouteAll(ctx, windows, capability) {
			if out.Failed() {
				res.Stats.FailedCalls++
				continue
			}
			docRec = merge.Merge(docRec, withSource(out.Object, doc.Name))
			extracted++
		}
		if extracted == 0 {
			res.Stats.ErrorMessages = append(res.Stats.ErrorMessages,
				fmt.Sprintf("%s: no project metadata extracted", doc.Name))
			continue
		}

		partial := make(types.PartialRecord, len(docRec.Fields)+1)
		for k, v := range docRec.Fields {
			partial[k] = v
		}
		partial[types.SourcesField] = []any{doc.Name}
		if key, ok := agg.Add(partial, doc.Name); ok {
			p.logger.Debug("past performance record", zap.String("file", doc.Name), zap.String("key", key))
		}
	}

	res.Records = agg.Records()
	res.Stats.Records = len(res.Records)
	res.Stats.DroppedRecords = agg.Dropped()

	if !p.opts.MatchPastPerf {
		return nil
	}
	for _, rec := range res.Records {
		if err := ctx.Err(); err != nil {
			return err
		}
		outs := p.router.RouteAll(ctx, res.Fragments, router.PastPerfMatch(rec))
		for i, out := range outs {
			if out.Failed() {
				res.Stats.FailedCalls++
				continue
			}
			if m, ok := router.MatchFromObject(out.Object, rec); ok {
				res.Fragments[i].Tags.AddMatches(types.SignalPastPerf, m)
			}
		}
	}
	return nil
}

// withSource copies an extracted object with its sources set to the
// document it came from. Sources the model reports are discarded.
func withSource(obj map[string]any, name string) types.PartialRecord {
	p := make(types.PartialRecord, len(obj)+1)
	for k, v := range obj {
		p[k] = v
	}
	p[types.SourcesField] = []any{name}
	return p
}

// compliance extracts requirements from window-sized slices of each
// fragment. Items point at the fragment they came from.
func (p *analysis) compliance(ctx context.Context, _ *loader.Opportunity, res *Result) error {
	res.Compliance = make([]types.ComplianceItem, 0)
	if !p.opts.Compliance {
		return nil
	}

	var windows []*types.Fragment
	for _, f := range res.Fragments {
		for _, text := range chunker.Window(f.Text, p.opts.WindowSize, p.opts.WindowOverlap) {
			windows = append(windows, &types.Fragment{ID: f.ID, SourceDocument: f.SourceDocument, Text: text})
		}
	}

	for i, out := range p.router.RouteAll(ctx, windows, router.Compliance()) {
		if out.Failed() {
			res.Stats.FailedCalls++
			continue
		}
		res.Compliance = append(res.Compliance, router.ComplianceFromObject(out.Object, windows[i])...)
	}
	res.Stats.ComplianceItems = len(res.Compliance)
	return nil
}

// themes builds the term table, asks the oracle to group the top terms into
// themes and merges near-duplicate theme labels
func (p *analysis) themes(ctx context.Context, _ *loader.Opportunity, res *Result) error {
	res.Themes = make([]types.Theme, 0)

	texts := make([]string, len(res.Fragments))
	for i, f := range res.Fragments {
		texts[i] = f.Text
	}
	table := terms.Build(texts, p.opts.TermBatchChars)
	res.TopTerms = table.Top(p.opts.TopTerms)
	if len(res.TopTerms) == 0 {
		return nil
	}

	list := make([]string, len(res.TopTerms))
	for i, t := range res.TopTerms {
		list[i] = t.Term
	}
	payload, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode terms: %w", err)
	}

	out := p.router.Call(ctx, themeCallID, string(payload), router.ThemeGrouping())
	if out.Failed() {
		res.Stats.FailedCalls++
		res.Stats.ErrorMessages = append(res.Stats.ErrorMessages, fmt.Sprintf("theme grouping: %v", out.Err))
		return nil
	}

	candidates := router.ThemesFromObject(out.Object, terms.CleanKeywords)
	res.Themes = merge.MergeThemes(candidates, table, p.opts.ThemeThreshold)
	res.Stats.Themes = len(res.Themes)
	return nil
}

// persist writes the run's output in one transaction and closes the run.
// A failed analysis only records the failure, and so does a failed write:
// the run never stays in the running state.
func (p *Pipeline) persist(ctx context.Context, run *storage.Run, res *Result, runErr error) error {
	// Persist even when the analysis was cancelled
	ctx = context.WithoutCancel(ctx)

	if runErr == nil {
		err := p.saveOutput(ctx, run, res)
		if err == nil {
			return nil
		}
		p.logger.Error("failed to persist run", zap.String("run", run.ID), zap.Error(err))
		runErr = err
	}

	*run = storage.Run{
		ID:          run.ID,
		Opportunity: run.Opportunity,
		RootPath:    run.RootPath,
		StartedAt:   run.StartedAt,
		CompletedAt: time.Now().UTC(),
		Status:      storage.RunFailed,
		Error:       runErr.Error(),
	}
	if err := p.storage.UpdateRun(ctx, run); err != nil {
		return fmt.Errorf("failed to mark run failed: %w", err)
	}
	return runErr
}

func (p *Pipeline) saveOutput(ctx context.Context, run *storage.Run, res *Result) error {
	completed := *run
	completed.CompletedAt = time.Now().UTC()
	completed.Status = storage.RunCompleted
	completed.FragmentCount = res.Stats.Fragments
	completed.FailedCalls = res.Stats.FailedCalls
	completed.RecordCount = res.Stats.Records
	completed.ThemeCount = res.Stats.Themes
	completed.GapCount = res.Stats.Gaps

	covered := make(map[string]bool, len(res.Sections))
	for _, s := range res.Sections {
		covered[s.ID] = true
	}
	for _, s := range res.Gaps.Uncovered {
		covered[s.ID] = false
	}

	tx, err := p.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []func() error{
		func() error { return tx.SaveFragments(ctx, run.ID, res.Fragments) },
		func() error { return tx.SaveSections(ctx, run.ID, res.Sections, covered) },
		func() error { return tx.SaveRecords(ctx, run.ID, res.Records) },
		func() error { return tx.SaveThemes(ctx, run.ID, res.Themes) },
		func() error { return tx.SaveCompliance(ctx, run.ID, res.Compliance) },
		func() error { return tx.UpdateRun(ctx, &completed) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	*run = completed
	return nil
}
