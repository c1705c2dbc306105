// Package chunker splits extracted note text into overlapping windows
// sized for embedding.
package chunker

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/keepstack/keepstack/internal/core/domain"
)

// DefaultChunkSize is the default number of bytes per chunk.
const DefaultChunkSize = 800

// DefaultOverlap is the default number of overlapping bytes between
// consecutive chunks.
const DefaultOverlap = 100

// defaultSeparators is the split hierarchy, largest semantic unit first.
// The empty separator means "split anywhere" and always fits.
var defaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter divides text into chunks of at most size bytes, preferring to
// break at paragraph, then line, then word boundaries. Consecutive chunks
// share up to overlap trailing bytes for context continuity.
type Splitter struct {
	size       int
	overlap    int
	separators []string
}

// NewSplitter creates a splitter. The overlap must be smaller than the
// chunk size; violations fail with domain.ErrInvalidConfig.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidConfig, size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must not be negative, got %d", domain.ErrInvalidConfig, overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", domain.ErrInvalidConfig, overlap, size)
	}
	return &Splitter{
		size:       size,
		overlap:    overlap,
		separators: defaultSeparators,
	}, nil
}

// Size returns the configured chunk size.
func (s *Splitter) Size() int {
	return s.size
}

// Overlap returns the configured overlap.
func (s *Splitter) Overlap() int {
	return s.overlap
}

// Split divides text into ordered chunks. Concatenating the chunks while
// stripping each chunk's leading overlap reconstructs the input exactly;
// no chunk exceeds the configured size. Empty input yields no chunks.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return nil
	}

	units := s.splitUnits(text, s.separators)
	return s.merge(units)
}

// splitUnits recursively divides text into units no larger than the chunk
// size. Separators are kept attached to the preceding unit so that the
// concatenation of all units equals the input.
func (s *Splitter) splitUnits(text string, separators []string) []string {
	if len(text) <= s.size {
		return []string{text}
	}
	if len(separators) == 0 {
		return s.hardSplit(text)
	}

	sep := separators[0]
	rest := separators[1:]

	if sep == "" {
		return s.hardSplit(text)
	}

	pieces := strings.SplitAfter(text, sep)
	if len(pieces) == 1 {
		// Separator absent, fall through to the next smaller unit.
		return s.splitUnits(text, rest)
	}

	units := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if len(piece) <= s.size {
			units = append(units, piece)
			continue
		}
		units = append(units, s.splitUnits(piece, rest)...)
	}
	return units
}

// hardSplit cuts text into size-bounded windows at rune boundaries.
func (s *Splitter) hardSplit(text string) []string {
	var units []string
	start := 0
	for start < len(text) {
		end := start + s.size
		if end >= len(text) {
			units = append(units, text[start:])
			break
		}
		// Back off to a rune boundary.
		for end > start && !utf8.RuneStart(text[end]) {
			end--
		}
		if end == start {
			end = start + s.size // Oversized rune, cut anyway.
		}
		units = append(units, text[start:end])
		start = end
	}
	return units
}

// merge greedily packs units into chunks of at most size bytes, seeding
// each new chunk with the previous chunk's trailing overlap.
func (s *Splitter) merge(units []string) []string {
	var chunks []string
	current := ""

	for _, unit := range units {
		if current != "" && len(current)+len(unit) > s.size {
			chunks = append(chunks, current)
			current = overlapSuffix(current, min(s.overlap, s.size-len(unit)))
		}
		current += unit
	}

	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

// overlapSuffix returns at most n trailing bytes of text, aligned to a
// rune boundary.
func overlapSuffix(text string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(text) <= n {
		return text
	}
	start := len(text) - n
	for start < len(text) && !utf8.RuneStart(text[start]) {
		start++
	}
	return text[start:]
}
