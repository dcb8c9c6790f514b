package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/chattyhq/ragstore/core"
)

func TestNew_RejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{name: "overlap equals size", size: 200, overlap: 200},
		{name: "overlap exceeds size", size: 200, overlap: 300},
		{name: "negative overlap", size: 200, overlap: -1},
		{name: "zero size", size: 0, overlap: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			if !errors.Is(err, core.ErrInvalidChunking) {
				t.Errorf("New(%d, %d) error = %v, want ErrInvalidChunking", tt.size, tt.overlap, err)
			}
			if c != nil {
				t.Error("expected nil chunker on configuration error")
			}
		})
	}
}

func TestSplit_Offsets(t *testing.T) {
	c, err := New(800, 200)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := strings.Repeat("x", 2200)
	windows := c.Split(text)

	wantOffsets := [][2]int{{0, 800}, {600, 1400}, {1200, 2000}, {1800, 2200}}
	if len(windows) != len(wantOffsets) {
		t.Fatalf("got %d windows, want %d", len(windows), len(wantOffsets))
	}
	for i, w := range windows {
		if w.Index != i {
			t.Errorf("window %d has index %d", i, w.Index)
		}
		if w.Start != wantOffsets[i][0] || w.End != wantOffsets[i][1] {
			t.Errorf("window %d spans [%d,%d), want [%d,%d)", i, w.Start, w.End, wantOffsets[i][0], wantOffsets[i][1])
		}
		if len(w.Text) != w.End-w.Start {
			t.Errorf("window %d text length %d does not match span", i, len(w.Text))
		}
	}
}

func TestSplit_ShortInput(t *testing.T) {
	c, err := New(800, 200)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	text := "shorter than one window"
	windows := c.Split(text)
	if len(windows) != 1 {
		t.Fatalf("got %d windows, want 1", len(windows))
	}
	if windows[0].Text != text {
		t.Errorf("single window %q, want whole input", windows[0].Text)
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	c, err := New(100, 20)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if windows := c.Split(""); len(windows) != 0 {
		t.Errorf("empty input produced %d windows", len(windows))
	}
}

func TestSplit_ZeroOverlapPartition(t *testing.T) {
	c, err := New(4, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	windows := c.Split("abcdefghij")
	var rebuilt strings.Builder
	for i, w := range windows {
		if w.Start != i*4 {
			t.Errorf("window %d starts at %d, want %d", i, w.Start, i*4)
		}
		if w.Text == "" {
			t.Errorf("window %d is empty", i)
		}
		rebuilt.WriteString(w.Text)
	}
	if rebuilt.String() != "abcdefghij" {
		t.Errorf("partition rebuilt %q", rebuilt.String())
	}
}

// Stripping the shared overlap prefix from every window after the first must
// reconstruct the original text exactly.
func TestSplit_Reconstruction(t *testing.T) {
	texts := []string{
		"The quick brown fox jumps over the lazy dog. " + strings.Repeat("Lorem ipsum dolor sit amet. ", 40),
		strings.Repeat("héllo wörld ", 100), // multi-byte runes
		"tiny",
	}
	configs := [][2]int{{800, 200}, {50, 10}, {16, 15}, {7, 0}}

	for _, text := range texts {
		for _, cfg := range configs {
			c, err := New(cfg[0], cfg[1])
			if err != nil {
				t.Fatalf("New(%d, %d): %v", cfg[0], cfg[1], err)
			}

			windows := c.Split(text)
			var rebuilt []rune
			for i, w := range windows {
				if w.Index != i {
					t.Fatalf("indices not contiguous: window %d has index %d", i, w.Index)
				}
				runes := []rune(w.Text)
				if i == 0 {
					rebuilt = append(rebuilt, runes...)
				} else {
					rebuilt = append(rebuilt, runes[cfg[1]:]...)
				}
			}
			if string(rebuilt) != text {
				t.Errorf("size %d overlap %d: reconstruction mismatch", cfg[0], cfg[1])
			}
			if len(windows) > 0 {
				last := windows[len(windows)-1]
				if last.End != len([]rune(text)) {
					t.Errorf("size %d overlap %d: final window ends at %d, want %d", cfg[0], cfg[1], last.End, len([]rune(text)))
				}
			}
		}
	}
}

func TestWindows_Restartable(t *testing.T) {
	c, err := New(10, 2)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	seq := c.Windows(strings.Repeat("a", 35))

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}

	first, second := count(), count()
	if first != second {
		t.Errorf("sequence not restartable: %d then %d windows", first, second)
	}

	// Early break must not panic or leak
	for w := range seq {
		if w.Index == 1 {
			break
		}
	}
}
