package merge

import (
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/dshills/proposal-mcp/pkg/types"
)

// IdentificationField is the partial-record object that names the project
const IdentificationField = "contract_identification"

// UnnamedKey is the synthetic identity used when no name can be derived
const UnnamedKey = "unnamed project"

// identityCandidates are tried in order
var identityCandidates = []string{
	"project_name",
	"contract_name",
	"program_title",
	"reference_name",
	"name",
}

// UnnamedPolicy decides what happens to a record with no usable identity
type UnnamedPolicy string

const (
	// UnnamedMerge folds such records into a single "unnamed project" record
	UnnamedMerge UnnamedPolicy = "merge"
	// UnnamedDrop discards them
	UnnamedDrop UnnamedPolicy = "drop"
)

// Valid reports whether p is a known policy
func (p UnnamedPolicy) Valid() bool {
	return p == UnnamedMerge || p == UnnamedDrop
}

// IdentityKey derives the grouping key for a partial record. cid is the
// record's identification object; the first candidate field holding a string
// longer than 3 characters after trimming is used. When none qualifies, or
// cid is not an object at all, the filename up to its first dot is used. ok
// is false when neither yields a name.
func IdentityKey(cid any, filename string) (key string, ok bool) {
	if m, isObj := asObject(cid); isObj {
		for _, field := range identityCandidates {
			s, isStr := m[field].(string)
			if !isStr {
				continue
			}
			if trimmed := strings.TrimSpace(s); utf8.RuneCountInString(trimmed) > 3 {
				return Normalize(trimmed), true
			}
		}
	}

	stem := filepath.Base(filename)
	if stem == "." || stem == string(filepath.Separator) {
		stem = ""
	}
	if i := strings.Index(stem, "."); i >= 0 {
		stem = stem[:i]
	}
	if stem = Normalize(stem); stem != "" {
		return stem, true
	}
	return "", false
}

// Normalize trims and case-folds a name for use as a key
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Aggregator groups partial records by identity key and merges each group in
// arrival order. Not safe for concurrent use.
type Aggregator struct {
	policy  UnnamedPolicy
	logger  *zap.Logger
	records map[string]*types.CanonicalRecord
	order   []string
	dropped int
}

// NewAggregator creates an empty Aggregator
func NewAggregator(policy UnnamedPolicy, logger *zap.Logger) *Aggregator {
	if !policy.Valid() {
		policy = UnnamedMerge
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		policy:  policy,
		logger:  logger,
		records: make(map[string]*types.CanonicalRecord),
	}
}

// Add merges p into the record for its identity key and returns that key.
// filename is both the identity fallback and, when p lists no sources, its
// provenance. ok is false when the record was dropped.
func (a *Aggregator) Add(p types.PartialRecord, filename string) (string, bool) {
	key, ok := IdentityKey(p[IdentificationField], filename)
	if !ok {
		if a.policy == UnnamedDrop {
			a.dropped++
			a.logger.Warn("dropping record without identity",
				zap.String("file", filename))
			return "", false
		}
		key = UnnamedKey
	}

	if len(p.Sources()) == 0 && filename != "" {
		withSource := make(types.PartialRecord, len(p)+1)
		for k, v := range p {
			withSource[k] = v
		}
		withSource[types.SourcesField] = []any{filename}
		p = withSource
	}

	existing, seen := a.records[key]
	if !seen {
		existing = &types.CanonicalRecord{Key: key}
		a.records[key] = existing
		a.order = append(a.order, key)
	}
	*existing = Merge(*existing, p)

	return key, true
}

// Records returns the canonical records in first-seen key order
func (a *Aggregator) Records() []types.CanonicalRecord {
	out := make([]types.CanonicalRecord, 0, len(a.order))
	for _, k := range a.order {
		out = append(out, *a.records[k])
	}
	return out
}

// Len returns the number of distinct identities seen
func (a *Aggregator) Len() int {
	return len(a.order)
}

// Dropped returns how many records were discarded for lack of identity
func (a *Aggregator) Dropped() int {
	return a.dropped
}
