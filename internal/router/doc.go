// Package router adapts the external oracle to typed, per-fragment results.
//
// A Capability names a task and knows how to render its prompt. Route makes
// exactly one oracle call, then parses the reply:
//
//   - score capabilities read "name: 0.87 - label - reason" lines
//   - object capabilities read the first balanced {...} in the reply,
//     tolerating trailing commas
//
// Any failure (oracle error, no score, malformed JSON) yields an Outcome with
// Err set and neutral values, and is logged at Warn. Callers never see a
// per-fragment error abort a batch.
//
// # Worker Pool
//
// RouteAll fans a capability out over fragments with at most Workers
// concurrent oracle calls and returns outcomes in input order:
//
//	r := router.New(o, logger, 4)
//	failed := r.Tag(ctx, frags, router.EvalCriteria())
package router
