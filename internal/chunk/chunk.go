// Package chunk splits email bodies into bounded-size pieces that each fit
// inside a single language model request.
package chunk

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrInvalidMaxSize is returned when the requested chunk size is not positive.
var ErrInvalidMaxSize = errors.New("chunk: max size must be positive")

// Split breaks text into an ordered sequence of chunks of at most maxChars
// bytes each. Boundaries prefer paragraph breaks, then line and sentence
// breaks, then word boundaries; only a single word longer than maxChars is
// ever cut mid-word. Concatenating the chunks in order reproduces the input
// up to whitespace at the chunk boundaries.
//
// An empty body yields exactly one empty chunk, so every email results in
// at least one summarization request.
func Split(text string, maxChars int) ([]string, error) {
	if maxChars <= 0 {
		return nil, ErrInvalidMaxSize
	}
	if len(text) <= maxChars {
		return []string{text}, nil
	}

	var chunks []string
	var b strings.Builder
	for _, frag := range fragments(text, maxChars) {
		if b.Len() > 0 && len(strings.TrimSpace(b.String()+frag)) > maxChars {
			chunks = append(chunks, strings.TrimSpace(b.String()))
			b.Reset()
		}
		b.WriteString(frag)
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		chunks = append(chunks, s)
	}
	return chunks, nil
}

// fragments cuts text into pieces that each fit within maxChars once
// trailing whitespace is trimmed, splitting at progressively finer
// boundaries. Separators stay attached to the preceding piece, so the
// concatenation of all fragments equals the input exactly.
func fragments(text string, maxChars int) []string {
	var out []string
	for _, para := range strings.SplitAfter(text, "\n\n") {
		if para == "" {
			continue
		}
		if fits(para, maxChars) {
			out = append(out, para)
			continue
		}
		for _, line := range strings.SplitAfter(para, "\n") {
			if line == "" {
				continue
			}
			if fits(line, maxChars) {
				out = append(out, line)
				continue
			}
			for _, sent := range splitAfterSentences(line) {
				if fits(sent, maxChars) {
					out = append(out, sent)
					continue
				}
				out = append(out, splitWords(sent, maxChars)...)
			}
		}
	}
	return out
}

func fits(s string, maxChars int) bool {
	return len(strings.TrimRight(s, " \t\r\n")) <= maxChars
}

// splitAfterSentences splits on sentence-ending punctuation followed by a
// space, keeping the separator attached to the preceding sentence.
func splitAfterSentences(s string) []string {
	var out []string
	rest := s
	for {
		i := sentenceEnd(rest)
		if i < 0 {
			break
		}
		out = append(out, rest[:i])
		rest = rest[i:]
	}
	if rest != "" {
		out = append(out, rest)
	}
	return out
}

func sentenceEnd(s string) int {
	for i := 0; i+1 < len(s); i++ {
		switch s[i] {
		case '.', '!', '?':
			if s[i+1] == ' ' {
				return i + 2
			}
		}
	}
	return -1
}

// splitWords greedily packs space-separated words into pieces of at most
// maxChars. A single word longer than maxChars is hard-cut at rune
// boundaries.
func splitWords(s string, maxChars int) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	for _, w := range strings.SplitAfter(s, " ") {
		for len(strings.TrimRight(w, " ")) > maxChars {
			flush()
			cut := maxChars
			for cut > 0 && !utf8.RuneStart(w[cut]) {
				cut--
			}
			if cut == 0 {
				// maxChars is smaller than the first rune; emit the rune whole.
				_, cut = utf8.DecodeRuneInString(w)
			}
			out = append(out, w[:cut])
			w = w[cut:]
		}
		if w == "" {
			continue
		}
		if b.Len() > 0 && len(strings.TrimRight(b.String()+w, " ")) > maxChars {
			flush()
		}
		b.WriteString(w)
	}
	flush()
	return out
}
