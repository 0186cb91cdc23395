// Package chunk splits extracted text into overlapping segments, the unit of
// indexing and embedding.
package chunk

import (
	"iter"
	"unicode/utf8"
)

// Default splitting parameters.
const (
	DefaultTargetSize = 1000
	DefaultOverlap    = 200
)

// boundaryWindow bounds how far back from the target offset the splitter
// searches for a sentence or whitespace boundary before cutting hard.
const boundaryWindow = 200

// Chunk is one overlapping text segment of a source document.
// Start and End are byte offsets into the source.
type Chunk struct {
	Index int
	Text  string
	Start int
	End   int
}

// Split lazily cuts text into chunks of roughly targetSize bytes with the
// given backward overlap between adjacent chunks. Cut points prefer terminal
// punctuation, then whitespace, and never land inside a UTF-8 codepoint.
// Empty input yields an empty sequence. The sequence is restartable: each
// range over it re-walks the text from the start.
func Split(text string, targetSize, overlap int) iter.Seq[Chunk] {
	if targetSize <= 0 {
		targetSize = DefaultTargetSize
	}
	// Overlap beyond half the target cannot make forward progress.
	if overlap < 0 || overlap > targetSize/2 {
		overlap = min(DefaultOverlap, targetSize/2)
	}

	return func(yield func(Chunk) bool) {
		if text == "" {
			return
		}

		start := 0
		for idx := 0; start < len(text); idx++ {
			end := start + targetSize
			if end >= len(text) {
				end = len(text)
			} else {
				end = cutPoint(text, start, end, overlap)
			}

			if !yield(Chunk{Index: idx, Text: text[start:end], Start: start, End: end}) {
				return
			}
			if end == len(text) {
				return
			}

			next := end - overlap
			// Overlap must begin on a rune boundary too.
			for next > 0 && !utf8.RuneStart(text[next]) {
				next--
			}
			if next <= start {
				// A boundary landed too close to the chunk start; give up
				// the overlap for this pair rather than loop in place.
				next = end
			}
			start = next
		}
	}
}

// Collect materializes the sequence. Indexing and tests use this; the live
// path ranges over Split directly.
func Collect(text string, targetSize, overlap int) []Chunk {
	var out []Chunk
	for c := range Split(text, targetSize, overlap) {
		out = append(out, c)
	}
	return out
}

// cutPoint picks the chunk end nearest to target: the closest sentence
// terminator searching backward within boundaryWindow, else the closest
// whitespace, else target snapped to a rune boundary. Candidates at or
// before start+overlap are rejected: cutting there would put the next
// chunk's overlapped start at or behind this chunk's start.
func cutPoint(text string, start, target, overlap int) int {
	for target > start && !utf8.RuneStart(text[target]) {
		target--
	}
	if target <= start {
		// The target landed inside the chunk's first rune; cut after it
		// so the walk always advances.
		_, size := utf8.DecodeRuneInString(text[start:])
		return start + size
	}

	minEnd := start + overlap
	floor := target - boundaryWindow
	if floor < minEnd {
		floor = minEnd
	}

	lastSpace := -1
	for i := target; i > floor; {
		r, size := decodeLastRune(text[:i])
		if isTerminal(r) {
			return i
		}
		if lastSpace < 0 && isSpace(r) {
			lastSpace = i - size
		}
		i -= size
	}

	if lastSpace > minEnd {
		return lastSpace
	}
	return target
}

func decodeLastRune(s string) (rune, int) {
	r, size := utf8.DecodeLastRuneInString(s)
	if r == utf8.RuneError && size <= 1 {
		return rune(s[len(s)-1]), 1
	}
	return r, size
}

func isTerminal(r rune) bool {
	switch r {
	case '.', '!', '?', '。', '！', '？', '\n':
		return true
	}
	return false
}

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}
