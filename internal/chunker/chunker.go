// Package chunker splits extracted document text into overlapping passages
// sized for embedding and retrieval.
package chunker

import (
	"iter"
	"strings"
	"unicode"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

const (
	DefaultMaxChars = 1000
	DefaultOverlap  = 200
)

// Boundaries in order of preference. A chunk ends right after the separator.
var defaultSeparators = []string{"\n\n", "\n", ". ", "? ", "! ", " "}

// Config controls chunk size and overlap, both in characters.
type Config struct {
	MaxChars int
	Overlap  int
}

// DefaultConfig provides the defaults used for PDF chat.
func DefaultConfig() Config {
	return Config{
		MaxChars: DefaultMaxChars,
		Overlap:  DefaultOverlap,
	}
}

// Splitter produces chunks with a recursive boundary preference: paragraph,
// line, sentence, word, then a hard cut.
type Splitter struct {
	cfg        Config
	separators [][]rune
}

// Option configures a Splitter.
type Option func(*Splitter)

// WithSeparators replaces the boundary preference list.
func WithSeparators(seps ...string) Option {
	return func(s *Splitter) {
		s.separators = toRunes(seps)
	}
}

// New creates a Splitter. Invalid sizes fall back to the defaults and an
// overlap that would not leave room for progress is reduced to a quarter of
// the chunk size.
func New(cfg Config, opts ...Option) *Splitter {
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = DefaultMaxChars
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = 0
	}
	if cfg.Overlap >= cfg.MaxChars {
		cfg.Overlap = cfg.MaxChars / 4
	}

	s := &Splitter{
		cfg:        cfg,
		separators: toRunes(defaultSeparators),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns the effective configuration.
func (s *Splitter) Config() Config {
	return s.cfg
}

// Split returns the chunks of text lazily. The sequence can be ranged over
// any number of times and yields the same chunks each time. Blank text yields
// nothing.
func (s *Splitter) Split(documentID, text string) iter.Seq[domain.Chunk] {
	return func(yield func(domain.Chunk) bool) {
		if strings.TrimSpace(text) == "" {
			return
		}

		runes := []rune(text)
		seq := 0
		for start := 0; start < len(runes); {
			end := s.chunkEnd(runes, start)

			chunk := domain.Chunk{
				DocumentID: documentID,
				Seq:        seq,
				Text:       string(runes[start:end]),
				Start:      start,
				End:        end,
			}
			if !yield(chunk) {
				return
			}
			seq++

			if end >= len(runes) {
				return
			}
			start = s.nextStart(runes, start, end)
		}
	}
}

// Collect is a convenience for callers that need every chunk at once.
func (s *Splitter) Collect(documentID, text string) []domain.Chunk {
	var chunks []domain.Chunk
	for c := range s.Split(documentID, text) {
		chunks = append(chunks, c)
	}
	return chunks
}

// chunkEnd picks the end of the chunk starting at start. The end always lies
// past the overlap window so the following chunk makes progress.
func (s *Splitter) chunkEnd(runes []rune, start int) int {
	limit := start + s.cfg.MaxChars
	if limit >= len(runes) {
		return len(runes)
	}

	minEnd := start + max(s.cfg.Overlap+1, s.cfg.MaxChars/2)
	for _, sep := range s.separators {
		if end := lastBoundary(runes, sep, minEnd, limit); end > 0 {
			return end
		}
	}
	return limit
}

// nextStart returns where the chunk after [start, end) begins: at most
// end-Overlap, snapped back to the start of a word when one is close.
func (s *Splitter) nextStart(runes []rune, start, end int) int {
	target := end - s.cfg.Overlap
	if s.cfg.Overlap == 0 {
		return target
	}

	floor := max(target-s.cfg.Overlap/2, start+1)
	for i := target; i >= floor; i-- {
		if i > 0 && unicode.IsSpace(runes[i-1]) && !unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return target
}

// lastBoundary finds the greatest end in [lo, hi] such that runes[end-len(sep):end]
// equals sep, or 0 when there is none.
func lastBoundary(runes []rune, sep []rune, lo, hi int) int {
	if lo < len(sep) {
		lo = len(sep)
	}
	for end := hi; end >= lo; end-- {
		if hasSuffixAt(runes, sep, end) {
			return end
		}
	}
	return 0
}

func hasSuffixAt(runes []rune, sep []rune, end int) bool {
	if end > len(runes) {
		return false
	}
	off := end - len(sep)
	for i, r := range sep {
		if runes[off+i] != r {
			return false
		}
	}
	return true
}

func toRunes(seps []string) [][]rune {
	out := make([][]rune, 0, len(seps))
	for _, sep := range seps {
		if sep == "" {
			continue
		}
		out = append(out, []rune(sep))
	}
	return out
}
