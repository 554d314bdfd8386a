package segment

import (
	"fmt"
	"strings"
	"testing"
)

func words(n, offset int) []string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", offset+i)
	}
	return w
}

func TestSplit_SingleWindow(t *testing.T) {
	got, err := Split("alpha beta gamma", 10, 2)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("Expected 1 window, got %d", len(got))
	}
	if got[0] != "alpha beta gamma" {
		t.Errorf("Window = %q", got[0])
	}
}

func TestSplit_OverlapBoundaries(t *testing.T) {
	// 1050 tokens with windowSize=500, overlap=50 must produce exactly
	// three windows covering [0,500), [450,950), [900,1050).
	text := strings.Join(words(1050, 0), " ")

	got, err := Split(text, 500, 50)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 windows, got %d", len(got))
	}

	wantFirst := strings.Join(words(500, 0), " ")
	if got[0] != wantFirst {
		t.Errorf("Window 1 does not cover tokens [0,500)")
	}
	wantSecond := strings.Join(words(500, 450), " ")
	if got[1] != wantSecond {
		t.Errorf("Window 2 does not cover tokens [450,950)")
	}
	wantThird := strings.Join(words(150, 900), " ")
	if got[2] != wantThird {
		t.Errorf("Window 3 does not cover tokens [900,1050)")
	}
}

func TestSplit_ReconstructsTokenSequence(t *testing.T) {
	tests := []struct {
		tokens     int
		windowSize int
		overlap    int
	}{
		{1, 5, 0},
		{5, 5, 0},
		{6, 5, 2},
		{100, 10, 3},
		{57, 8, 7},
	}

	for _, tt := range tests {
		text := strings.Join(words(tt.tokens, 0), " ")
		windows, err := Split(text, tt.windowSize, tt.overlap)
		if err != nil {
			t.Fatalf("Split(%d,%d,%d) failed: %v", tt.tokens, tt.windowSize, tt.overlap, err)
		}

		// Concatenating the first window with every later window's
		// non-overlapping tail must reproduce the token sequence.
		var rebuilt []string
		for i, w := range windows {
			parts := strings.Fields(w)
			if len(parts) > tt.windowSize {
				t.Errorf("Window %d has %d tokens, max %d", i, len(parts), tt.windowSize)
			}
			if i == 0 {
				rebuilt = append(rebuilt, parts...)
			} else {
				rebuilt = append(rebuilt, parts[tt.overlap:]...)
			}
		}

		if strings.Join(rebuilt, " ") != text {
			t.Errorf("Split(%d,%d,%d): reconstruction mismatch", tt.tokens, tt.windowSize, tt.overlap)
		}
	}
}

func TestSplit_EmptyInput(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  \n"} {
		got, err := Split(text, 500, 50)
		if err != nil {
			t.Fatalf("Split(%q) failed: %v", text, err)
		}
		if len(got) != 0 {
			t.Errorf("Split(%q) = %d windows, want 0", text, len(got))
		}
	}
}

func TestSplit_InvalidConfig(t *testing.T) {
	tests := []struct {
		name       string
		windowSize int
		overlap    int
	}{
		{"zero window", 0, 0},
		{"negative window", -1, 0},
		{"negative overlap", 10, -1},
		{"overlap equals window", 10, 10},
		{"overlap exceeds window", 10, 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split("some text here", tt.windowSize, tt.overlap)
			if err == nil {
				t.Errorf("Expected error for windowSize=%d overlap=%d", tt.windowSize, tt.overlap)
			}
		})
	}
}

func TestSplit_CollapsesWhitespace(t *testing.T) {
	got, err := Split("a\t\tb\n\nc   d", 2, 0)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 windows, got %d", len(got))
	}
	if got[0] != "a b" || got[1] != "c d" {
		t.Errorf("Windows = %v", got)
	}
}
