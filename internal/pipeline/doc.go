// Package pipeline runs the full analysis of one opportunity folder.
//
// Stages, in order:
//  1. load solicitation, capture and past-performance documents
//  2. chunk the solicitation into paragraph fragments placed under sections
//  3. score expectation and eval-criteria signals, collect criteria text,
//     then score win-theme alignment against the capture strategy
//  4. extract past-performance records from windowed writeups, merge per
//     document and then by identity
//  5. match fragments to past-performance records
//  6. extract compliance requirements
//  7. group frequent terms into themes and merge near-duplicate labels
//  8. compute coverage gaps and persist the run
//
// Oracle calls fan out through a router worker pool. A failed call leaves a
// neutral result and is counted in Statistics.FailedCalls.
package pipeline
