// Package merge reconciles fragmentary extractor output into canonical
// entities.
//
// # Records
//
// Every fragment of a past-performance document yields a PartialRecord. Merge
// folds partials into a CanonicalRecord field by field, never overwriting
// information that is already present:
//
//	rec := merge.Merge(types.CanonicalRecord{Key: "alpha bridge"}, partial)
//
// Merging the same partial twice changes nothing, list fields keep every
// element of both sides, and an existing non-empty string is never replaced.
//
// Aggregator groups partials by IdentityKey before merging:
//
//	agg := merge.NewAggregator(merge.UnnamedMerge, logger)
//	for _, p := range partials {
//	    agg.Add(p, "alpha.docx")
//	}
//	records := agg.Records()
//
// # Themes
//
// MergeThemes clusters candidate themes whose labels are similar (ratio at
// least 0.75 by default). The pass is order-sensitive and not transitive.
package merge
