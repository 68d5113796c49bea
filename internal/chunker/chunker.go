package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultParagraphSize is the paragraph-mode chunk limit used for solicitations
	DefaultParagraphSize = 1500

	// DefaultWindowSize and DefaultWindowOverlap are the window-mode settings
	// used when re-chunking past-performance documents
	DefaultWindowSize    = 3000
	DefaultWindowOverlap = 200

	paragraphJoiner = "\n\n"
)

var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

// span is a half-open byte interval into the chunked text
type span struct {
	start, end int
}

// Paragraphs splits text on blank-line boundaries and packs whole paragraphs
// into chunks. A chunk is closed when appending the next paragraph (with its
// "\n\n" joiner) would bring it to maxSize runes or more. A single paragraph
// longer than maxSize is cut with Window so no chunk exceeds the limit.
func Paragraphs(text string, maxSize int) []string {
	pieces := paragraphPieces(text, maxSize)
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

// Window cuts text into fixed windows of maxSize runes. Each window after the
// first starts overlap runes before the previous one ended. When overlap is
// maxSize or more the cursor jumps to the previous end instead, so the
// cursor always advances and the final remainder is always emitted.
func Window(text string, maxSize, overlap int) []string {
	spans := windowSpans(text, maxSize, overlap)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = text[s.start:s.end]
	}
	return out
}

// piece is one paragraph-mode chunk with the source bytes it was cut from
type piece struct {
	text string
	span
}

func paragraphPieces(text string, maxSize int) []piece {
	pieces := make([]piece, 0)

	var (
		buf    strings.Builder
		bufLen int
		bufRng span
	)
	flush := func() {
		if bufLen == 0 {
			return
		}
		pieces = append(pieces, piece{text: buf.String(), span: bufRng})
		buf.Reset()
		bufLen = 0
	}

	for _, para := range paragraphSpans(text) {
		p := text[para.start:para.end]
		pLen := utf8.RuneCountInString(p)

		if maxSize > 0 && pLen > maxSize {
			flush()
			for _, w := range windowSpans(p, maxSize, 0) {
				pieces = append(pieces, piece{
					text: p[w.start:w.end],
					span: span{para.start + w.start, para.start + w.end},
				})
			}
			continue
		}

		if bufLen > 0 && maxSize > 0 && bufLen+len(paragraphJoiner)+pLen >= maxSize {
			flush()
		}

		if bufLen == 0 {
			buf.WriteString(p)
			bufLen = pLen
			bufRng = para
			continue
		}

		buf.WriteString(paragraphJoiner)
		buf.WriteString(p)
		bufLen += len(paragraphJoiner) + pLen
		bufRng.end = para.end
	}
	flush()

	return pieces
}

// paragraphSpans returns the trimmed, non-empty paragraphs of text
func paragraphSpans(text string) []span {
	spans := make([]span, 0)
	cursor := 0
	add := func(start, end int) {
		seg := text[start:end]
		trimmed := strings.TrimSpace(seg)
		if trimmed == "" {
			return
		}
		lead := strings.Index(seg, trimmed)
		spans = append(spans, span{start + lead, start + lead + len(trimmed)})
	}

	for _, br := range paragraphBreak.FindAllStringIndex(text, -1) {
		add(cursor, br[0])
		cursor = br[1]
	}
	add(cursor, len(text))

	return spans
}

func windowSpans(text string, maxSize, overlap int) []span {
	if text == "" {
		return nil
	}

	// Byte offset of every rune boundary, including len(text)
	bounds := make([]int, 0, len(text)+1)
	for i := range text {
		bounds = append(bounds, i)
	}
	n := len(bounds)
	bounds = append(bounds, len(text))

	if maxSize <= 0 || n <= maxSize {
		return []span{{0, len(text)}}
	}
	if overlap < 0 {
		overlap = 0
	}

	spans := make([]span, 0, n/maxSize+1)
	start := 0
	for {
		end := start + maxSize
		if end > n {
			end = n
		}
		spans = append(spans, span{bounds[start], bounds[end]})
		if end == n {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return spans
}
