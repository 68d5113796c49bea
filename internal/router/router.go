package router

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/dshills/proposal-mcp/internal/oracle"
	"github.com/dshills/proposal-mcp/pkg/types"
)

// DefaultWorkers bounds concurrent oracle calls in RouteAll
const DefaultWorkers = 4

// LabelError is the label recorded when a labeled score could not be obtained
const LabelError = "error"

// LabelNone is the label recorded when a reply carried a score but no label
const LabelNone = "none"

// Kind is the reply shape a capability expects
type Kind int

const (
	// KindScore replies look like "name: 0.87 - reason"
	KindScore Kind = iota
	// KindObject replies embed one JSON object
	KindObject
)

// Capability is one named task the oracle performs on a fragment
type Capability struct {
	Name    string
	Kind    Kind
	Labeled bool // score replies carry a label after the score

	// Prompt renders the full prompt for a fragment
	Prompt func(f *types.Fragment) string
}

// Outcome is the normalized result of one routed call. On failure Err is set
// and the value fields hold the neutral default: score 0, no object.
type Outcome struct {
	FragmentID string
	Capability string
	Score      float64
	Label      string
	Reason     string
	Object     map[string]any
	Raw        string
	Err        error
}

// Failed reports whether the call or its parsing failed
func (o Outcome) Failed() bool {
	return o.Err != nil
}

// Apply records a score outcome on the fragment's tags. Object outcomes
// carry no fragment tags and are left to the caller.
func (o Outcome) Apply(f *types.Fragment, c Capability) {
	if c.Kind != KindScore {
		return
	}
	f.Tags.SetScore(c.Name, o.Score)
	if c.Labeled {
		f.Tags.SetLabel(c.Name, o.Label)
	}
}

// Router sends fragments to the oracle and normalizes replies. Failures never
// escape as errors: they come back as neutral Outcomes and are logged.
type Router struct {
	oracle  oracle.Oracle
	logger  *zap.Logger
	workers int
}

// New creates a Router. workers <= 0 uses DefaultWorkers.
func New(o oracle.Oracle, logger *zap.Logger, workers int) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Router{oracle: o, logger: logger, workers: workers}
}

// Workers returns the pool size used by RouteAll
func (r *Router) Workers() int {
	return r.workers
}

// Route makes exactly one oracle call for f. There are no retries here;
// wrap the oracle with oracle.WithRetry for that.
func (r *Router) Route(ctx context.Context, f *types.Fragment, c Capability) Outcome {
	out := Outcome{FragmentID: f.ID, Capability: c.Name}
	start := time.Now()

	reply, err := r.oracle.Complete(ctx, oracle.Request{
		Capability: c.Name,
		Prompt:     c.Prompt(f),
		Text:       f.Text,
	})
	if err != nil {
		return r.fail(out, c, err)
	}
	out.Raw = reply

	switch c.Kind {
	case KindObject:
		obj, err := ParseObject(reply)
		if err != nil {
			return r.fail(out, c, err)
		}
		out.Object = obj
	default:
		s, err := ParseScore(reply, c.Name, c.Labeled)
		if err != nil {
			return r.fail(out, c, err)
		}
		out.Score = s.Value
		out.Reason = s.Reason
		if c.Labeled {
			out.Label = s.Label
			if out.Label == "" {
				out.Label = LabelNone
			}
		}
	}

	r.logger.Debug("routed fragment",
		zap.String("fragment", f.ID),
		zap.String("capability", c.Name),
		zap.Float64("score", out.Score),
		zap.Duration("elapsed", time.Since(start)))

	return out
}

// Call routes free text that is not part of any document, such as the term
// list sent for theme grouping
func (r *Router) Call(ctx context.Context, id, text string, c Capability) Outcome {
	return r.Route(ctx, &types.Fragment{ID: id, Text: text}, c)
}

func (r *Router) fail(out Outcome, c Capability, err error) Outcome {
	out.Err = err
	out.Score = 0
	out.Object = nil
	if c.Labeled {
		out.Label = LabelError
	}
	r.logger.Warn("fragment routing failed",
		zap.String("fragment", out.FragmentID),
		zap.String("capability", c.Name),
		zap.Error(err))
	return out
}

// RouteAll routes every fragment through the worker pool and returns the
// outcomes in input order. Cancelling ctx turns not-yet-started fragments
// into failed outcomes; the batch itself never aborts.
func (r *Router) RouteAll(ctx context.Context, frags []*types.Fragment, c Capability) []Outcome {
	outcomes := make([]Outcome, len(frags))
	sem := semaphore.NewWeighted(int64(r.workers))
	var g errgroup.Group

	for i, f := range frags {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(frags); j++ {
				outcomes[j] = r.fail(Outcome{FragmentID: frags[j].ID, Capability: c.Name}, c, err)
			}
			break
		}

		g.Go(func() error {
			defer sem.Release(1)
			outcomes[i] = r.Route(ctx, f, c)
			return nil
		})
	}

	_ = g.Wait()
	return outcomes
}

// Tag routes frags and applies each score outcome to its fragment. It returns
// the number of failed fragments.
func (r *Router) Tag(ctx context.Context, frags []*types.Fragment, c Capability) int {
	failed := 0
	for i, out := range r.RouteAll(ctx, frags, c) {
		out.Apply(frags[i], c)
		if out.Failed() {
			failed++
		}
	}
	return failed
}
