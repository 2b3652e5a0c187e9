package chunk

import (
	"strings"
	"testing"
)

// normalize collapses all whitespace runs into single spaces so chunked and
// original text can be compared modulo boundary whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestSplit_InvalidMaxSize(t *testing.T) {
	for _, max := range []int{0, -1, -100} {
		if _, err := Split("some text", max); err != ErrInvalidMaxSize {
			t.Errorf("Split(max=%d) error = %v, want ErrInvalidMaxSize", max, err)
		}
	}
}

func TestSplit_EmptyBody(t *testing.T) {
	chunks, err := Split("", 100)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != "" {
		t.Errorf("Split(\"\") = %q, want a single empty chunk", chunks)
	}
}

func TestSplit_ShortBodySingleChunk(t *testing.T) {
	text := "A short email that easily fits."
	chunks, err := Split(text, 100)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 1 || chunks[0] != text {
		t.Errorf("Split() = %q, want exactly the input as one chunk", chunks)
	}
}

func TestSplit_PrefersParagraphBreaks(t *testing.T) {
	para1 := "First paragraph about the field trip."
	para2 := "Second paragraph about permission slips."
	chunks, err := Split(para1+"\n\n"+para2, 50)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Split() produced %d chunks, want 2: %q", len(chunks), chunks)
	}
	if chunks[0] != para1 || chunks[1] != para2 {
		t.Errorf("Split() = %q, want the two paragraphs intact", chunks)
	}
}

func TestSplit_RespectsMaxSize(t *testing.T) {
	text := strings.Repeat("The school concert starts at seven. Please arrive early. ", 40)
	for _, max := range []int{20, 50, 128, 1000} {
		chunks, err := Split(text, max)
		if err != nil {
			t.Fatalf("Split(max=%d) error = %v", max, err)
		}
		for i, c := range chunks {
			if len(c) > max {
				t.Errorf("Split(max=%d) chunk %d has length %d", max, i, len(c))
			}
		}
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
	}{
		{"sentences", strings.Repeat("One two three four five. ", 30), 40},
		{"paragraphs", "alpha beta\n\ngamma delta\n\nepsilon zeta eta theta iota kappa", 15},
		{"long lines", strings.Repeat("word ", 100), 12},
		{"long word", "prefix " + strings.Repeat("x", 50) + " suffix", 10},
		{"unicode", strings.Repeat("héllo wörld. ", 20), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := Split(tt.text, tt.max)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			got := normalize(strings.Join(chunks, " "))
			want := normalize(tt.text)
			if got != want {
				t.Errorf("round trip mismatch\n got: %q\nwant: %q", got, want)
			}
		})
	}
}

func TestSplit_LongWordHardCut(t *testing.T) {
	word := strings.Repeat("a", 25)
	chunks, err := Split(word+" tail", 10)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i, c := range chunks {
		if len(c) > 10 {
			t.Errorf("chunk %d exceeds max: %q", i, c)
		}
	}
	joined := strings.ReplaceAll(strings.Join(chunks, ""), " ", "")
	if joined != word+"tail" {
		t.Errorf("hard cut lost content: %q", chunks)
	}
}
