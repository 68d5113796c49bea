// Package chunker splits document text into bounded fragments.
//
// Two strategies are available. Both cover the whole input, always advance,
// emit the trailing remainder, return nothing for empty input and exactly one
// chunk for input shorter than the limit. Sizes count runes, not bytes.
//
// # Paragraph Mode
//
// Used for solicitations. Text is split on blank lines and whole paragraphs
// are packed into a buffer until the next one would reach the limit:
//
//	chunks := chunker.Paragraphs(text, chunker.DefaultParagraphSize)
//
// Adjacent paragraph chunks do not overlap.
//
// # Window Mode
//
// Used to re-cut large unstructured blocks such as past-performance writeups:
//
//	chunks := chunker.Window(text, 3000, 200)
//
// Each window begins overlap runes before the previous one ended.
//
// # Fragments
//
// A Chunker wraps chunks as types.Fragment values with deterministic IDs,
// byte ranges into the source, and section hints:
//
//	c := chunker.New(chunker.Config{Mode: chunker.ModeParagraph})
//	secs := sections.Extract(text)
//	frags := c.Fragments("rfp.txt", text, secs)
package chunker
