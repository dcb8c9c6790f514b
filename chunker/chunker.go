package chunker

import (
	"iter"

	"github.com/chattyhq/ragstore/core"
)

// Window is a single chunk of source text with its rune offsets.
type Window struct {
	Index int // Zero-based position, defines reconstruction order
	Start int // Rune offset of the first character
	End   int // Rune offset one past the last character
	Text  string
}

// Chunker splits normalized document text into fixed-size overlapping windows.
// Sizes and offsets are counted in runes so multi-byte text never splits
// mid-character.
type Chunker struct {
	size    int
	overlap int
	stride  int
}

// New creates a Chunker with the given window size and overlap, both in runes.
// The combination is validated here, not at chunk time: the overlap must be
// non-negative and strictly smaller than the size.
func New(size, overlap int) (*Chunker, error) {
	if err := core.ValidateChunking(size, overlap); err != nil {
		return nil, err
	}
	return &Chunker{
		size:    size,
		overlap: overlap,
		stride:  size - overlap,
	}, nil
}

// Size returns the configured window size in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Windows returns a lazy, restartable sequence of windows over text.
// Window i starts at rune offset i*(size-overlap) and spans at most size
// runes. Consecutive windows share exactly overlap runes, except the final
// window, which ends at the end of the text and may be shorter. Empty input
// yields no windows; a zero-length window is never produced.
func (c *Chunker) Windows(text string) iter.Seq[Window] {
	return func(yield func(Window) bool) {
		runes := []rune(text)
		n := len(runes)
		if n == 0 {
			return
		}
		for i := 0; ; i++ {
			start := i * c.stride
			end := start + c.size
			last := end >= n
			if last {
				end = n
			}
			w := Window{
				Index: i,
				Start: start,
				End:   end,
				Text:  string(runes[start:end]),
			}
			if !yield(w) || last {
				return
			}
		}
	}
}

// Split eagerly collects all windows over text.
func (c *Chunker) Split(text string) []Window {
	var windows []Window
	for w := range c.Windows(text) {
		windows = append(windows, w)
	}
	return windows
}
