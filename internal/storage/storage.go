package storage

import (
	"context"
	"time"

	"github.com/dshills/proposal-mcp/pkg/types"
)

// Storage defines the interface for persisting and querying analysis runs
type Storage interface {
	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	LatestRun(ctx context.Context, opportunity string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	DeleteRun(ctx context.Context, runID string) error

	// Fragment operations
	SaveFragments(ctx context.Context, runID string, frags []*types.Fragment) error
	ListFragments(ctx context.Context, runID string) ([]*types.Fragment, error)

	// Section operations. covered holds the ids of covered sections.
	SaveSections(ctx context.Context, runID string, secs []types.Section, covered map[string]bool) error
	ListSections(ctx context.Context, runID string) ([]SectionRow, error)
	ListGaps(ctx context.Context, runID string) ([]types.Section, error)

	// Record operations
	SaveRecords(ctx context.Context, runID string, recs []types.CanonicalRecord) error
	ListRecords(ctx context.Context, runID string) ([]types.CanonicalRecord, error)

	// Theme operations
	SaveThemes(ctx context.Context, runID string, themes []types.Theme) error
	ListThemes(ctx context.Context, runID string) ([]types.Theme, error)

	// Compliance operations
	SaveCompliance(ctx context.Context, runID string, items []types.ComplianceItem) error
	ListCompliance(ctx context.Context, runID string) ([]types.ComplianceItem, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Run statuses
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Run is one execution of the analysis pipeline over an opportunity folder
type Run struct {
	ID          string // ULID, time ordered
	Opportunity string // folder name of the opportunity
	RootPath    string
	Status      string
	Error       string

	FragmentCount int
	FailedCalls   int
	RecordCount   int
	ThemeCount    int
	GapCount      int

	StartedAt   time.Time
	CompletedAt time.Time
}

// SectionRow is a stored section with its coverage flag
type SectionRow struct {
	types.Section
	Covered bool
}
