// Package types provides shared type definitions for the proposal analysis engine.
//
// The types here flow through every stage of a run:
//
//	raw text -> Fragment -> PartialRecord -> CanonicalRecord
//	                     -> Tags          -> GapReport
//	terms    -> Theme
//
// # Fragments
//
// A Fragment is a bounded unit of document text produced by the chunker. Its
// identity, text, and byte range never change after creation; downstream
// stages only add Tags:
//
//	frag := types.Fragment{
//	    ID:             "3f1c...",
//	    Text:           "Offerors shall submit ...",
//	    SourceDocument: "rfp.txt",
//	    Range:          types.ByteRange{Start: 0, End: 1480},
//	    SectionID:      "4.2",
//	}
//	frag.Tags.SetScore(types.SignalExpectation, 0.87)
//
// # Records
//
// A PartialRecord is the decoded JSON object an extractor returned for a single
// fragment. A CanonicalRecord is the reconciled view of every PartialRecord that
// resolved to the same entity identity key. See internal/merge for the rules.
//
// # Themes and Sections
//
// Theme groups keywords under a label with per-keyword corpus frequency.
// Section is a numbered heading found in a solicitation; GapReport lists the
// sections no covered fragment points at.
package types
