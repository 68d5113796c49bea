package chunker

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/dshills/proposal-mcp/internal/sections"
	"github.com/dshills/proposal-mcp/pkg/types"
)

// Mode selects the chunking strategy
type Mode string

const (
	ModeParagraph Mode = "paragraph"
	ModeWindow    Mode = "window"
)

var (
	// fragmentNamespace scopes the name-based UUIDs minted for fragments
	fragmentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:proposal-mcp:fragment"))

	bulletPattern = regexp.MustCompile(`[-•*]\s+`)
)

// Config controls chunk sizing
type Config struct {
	Mode    Mode
	MaxSize int
	Overlap int // window mode only
}

// Chunker turns document text into fragments
type Chunker struct {
	cfg Config
}

// New creates a Chunker. Zero fields fall back to the defaults for the mode.
func New(cfg Config) *Chunker {
	if cfg.Mode == "" {
		cfg.Mode = ModeParagraph
	}
	if cfg.MaxSize <= 0 {
		if cfg.Mode == ModeWindow {
			cfg.MaxSize = DefaultWindowSize
		} else {
			cfg.MaxSize = DefaultParagraphSize
		}
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective configuration
func (c *Chunker) Config() Config {
	return c.cfg
}

// Chunk splits text using the configured mode
func (c *Chunker) Chunk(text string) []string {
	if c.cfg.Mode == ModeWindow {
		return Window(text, c.cfg.MaxSize, c.cfg.Overlap)
	}
	return Paragraphs(text, c.cfg.MaxSize)
}

// Fragments chunks one document and wraps each chunk as a Fragment. secs must
// be the sections extracted from this same document; they supply each
// fragment's section hint and page. Pass nil when the document has none.
func (c *Chunker) Fragments(source, text string, secs []types.Section) []*types.Fragment {
	var pieces []piece
	if c.cfg.Mode == ModeWindow {
		for _, s := range windowSpans(text, c.cfg.MaxSize, c.cfg.Overlap) {
			pieces = append(pieces, piece{text: text[s.start:s.end], span: s})
		}
	} else {
		pieces = paragraphPieces(text, c.cfg.MaxSize)
	}

	frags := make([]*types.Fragment, 0, len(pieces))
	for i, p := range pieces {
		frag := &types.Fragment{
			ID:              FragmentID(source, i),
			SourceDocument:  source,
			Text:            p.text,
			Range:           types.ByteRange{Start: p.start, End: p.end},
			ContainsBullets: bulletPattern.MatchString(p.text),
		}
		if sec, ok := sections.Locate(secs, p.start); ok {
			frag.SectionID = sec.ID
			frag.SectionHeading = sec.FullHeading()
			frag.Page = sec.Page
		}
		frags = append(frags, frag)
	}

	return frags
}

// FragmentID derives a stable identifier from the document name and the
// chunk's position in it
func FragmentID(source string, index int) string {
	return uuid.NewSHA1(fragmentNamespace, []byte(fmt.Sprintf("%s#%d", source, index))).String()
}
