package corpus

import "strings"

const (
	defaultChunkChars   = 800
	defaultOverlapChars = 100
)

type window struct {
	start int
	end   int
}

// chunkWindows splits a document into overlapping windows of roughly
// chunkChars runes. Window edges prefer whitespace so search snippets
// don't split words; offsets always index the original rune slice.
func chunkWindows(runes []rune, chunkChars, overlapChars int) []window {
	if len(runes) == 0 {
		return nil
	}
	if chunkChars <= 0 {
		chunkChars = defaultChunkChars
	}
	if overlapChars < 0 || overlapChars >= chunkChars {
		overlapChars = chunkChars / 8
	}

	windows := make([]window, 0, len(runes)/chunkChars+1)
	start := 0
	for start < len(runes) {
		end := start + chunkChars
		if end >= len(runes) {
			windows = append(windows, window{start: start, end: len(runes)})
			break
		}
		end = snapToWhitespace(runes, end)
		windows = append(windows, window{start: start, end: end})
		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return windows
}

// snapToWhitespace walks backward from pos to the nearest whitespace rune,
// giving up after a short scan so pathological unbroken text still chunks.
func snapToWhitespace(runes []rune, pos int) int {
	const maxScan = 80
	for i := pos; i > pos-maxScan && i > 0; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	return pos
}

func isSpace(r rune) bool {
	return strings.ContainsRune(" \t\n\r", r)
}
