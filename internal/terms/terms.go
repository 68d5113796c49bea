// Package terms computes corpus term frequencies used to rank theme keywords.
package terms

import (
	"sort"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultBatchChars bounds how much text is tokenized in one pass
	DefaultBatchChars = 100_000

	// DefaultTopN is how many terms are offered to the theme grouper
	DefaultTopN = 250

	batchJoiner = "\n\n"
)

// Stopwords never appear in a counted term
var Stopwords = newStopSet(`a an and are as at be but by for if in into is it no not of on or
such that the their then there these they this to was will with you your we our from under
above over within without shall should must can may`)

func newStopSet(list string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(list) {
		set[w] = struct{}{}
	}
	return set
}

func isStop(w string) bool {
	_, ok := Stopwords[w]
	return ok
}

// Table maps a term (unigram, bigram or trigram) to its count
type Table map[string]int

// Add accumulates other into t
func (t Table) Add(other Table) {
	for k, v := range other {
		t[k] += v
	}
}

// Term is one entry of a ranked table
type Term struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// Top returns the n most frequent terms, ties broken alphabetically. n <= 0
// returns every term.
func (t Table) Top(n int) []Term {
	out := make([]Term, 0, len(t))
	for k, v := range t {
		out = append(out, Term{Term: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Tokenize lowercases text, deletes ASCII punctuation and splits on
// whitespace. Punctuation is removed rather than replaced, so "e-mail"
// becomes "email".
func Tokenize(text string) []string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if r < utf8.RuneSelf && strings.ContainsRune(asciiPunctuation, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Fields(b.String())
}

const asciiPunctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Extract counts the terms of one text. Unigrams must be longer than two
// characters and not a stopword; bigrams and trigrams may not contain a
// stopword at all.
func Extract(text string) Table {
	words := Tokenize(text)
	table := make(Table)

	for i, w := range words {
		if !isStop(w) && len(w) > 2 {
			table[w]++
		}
		if i+1 < len(words) && !isStop(w) && !isStop(words[i+1]) {
			table[w+" "+words[i+1]]++
		}
		if i+2 < len(words) && !isStop(w) && !isStop(words[i+1]) && !isStop(words[i+2]) {
			table[w+" "+words[i+1]+" "+words[i+2]]++
		}
	}

	return table
}

// Build counts terms over many texts. Texts are concatenated with blank
// lines into batches of at most maxBatchChars and each batch is counted
// separately, so n-grams never span two batches. maxBatchChars <= 0 uses
// DefaultBatchChars.
func Build(texts []string, maxBatchChars int) Table {
	if maxBatchChars <= 0 {
		maxBatchChars = DefaultBatchChars
	}

	table := make(Table)
	var batch strings.Builder
	batchLen := 0

	for _, text := range texts {
		n := utf8.RuneCountInString(text)
		if batchLen > 0 && batchLen+n > maxBatchChars {
			table.Add(Extract(batch.String()))
			batch.Reset()
			batchLen = 0
		}
		if batchLen > 0 {
			batch.WriteString(batchJoiner)
			batchLen += len(batchJoiner)
		}
		batch.WriteString(text)
		batchLen += n
	}
	if batchLen > 0 {
		table.Add(Extract(batch.String()))
	}

	return table
}

// CleanKeywords trims keywords, removes bullet glyphs, and drops blanks and
// duplicates while keeping first-seen order
func CleanKeywords(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, k := range raw {
		k = strings.TrimSpace(strings.ReplaceAll(strings.TrimSpace(k), "•", ""))
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
