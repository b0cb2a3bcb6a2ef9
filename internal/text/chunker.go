package text

import (
	"strings"
	"unicode/utf8"
)

// ChunkText splits one page of extracted prose into segments of at most size
// runes, overlapping by overlap runes so a sentence cut at a boundary is still
// retrievable from the neighbouring segment. Splits prefer paragraph breaks,
// then sentence ends, then whitespace. Segment order follows text order; the
// segment index is part of the deterministic record id, so this function must
// stay stable for a given input.
func ChunkText(content string, size, overlap int) []string {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}
	if size <= 0 {
		size = 1200
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}

	runes := []rune(content)
	if len(runes) <= size {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < len(runes) {
		end := start + size
		if end >= len(runes) {
			end = len(runes)
		} else {
			end = splitPoint(runes, start, end)
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
		// splitPoint may cut well before start+size, so stepping back by
		// overlap can land at or behind the current start. Drop the overlap
		// for that step rather than looping in place.
		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return chunks
}

// splitPoint walks back from the hard limit looking for a natural boundary,
// but never further than half the window to avoid degenerate tiny chunks.
func splitPoint(runes []rune, start, limit int) int {
	floor := start + (limit-start)/2

	for i := limit; i > floor; i-- {
		if runes[i-1] == '\n' && i < len(runes) && runes[i] == '\n' {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		r := runes[i-1]
		if (r == '.' || r == '!' || r == '?') && i < len(runes) && isSpace(runes[i]) {
			return i
		}
	}
	for i := limit; i > floor; i-- {
		if isSpace(runes[i-1]) {
			return i
		}
	}
	return limit
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

// RuneLen is a convenience for size accounting in callers and tests.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
