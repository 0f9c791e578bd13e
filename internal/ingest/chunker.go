package ingest

import "strings"

// Chunk splits text into overlapping segments of at most maxSize bytes.
// When a window would cut mid-text, the cut snaps back to the last
// sentence terminator or newline, provided that breakpoint lies past the
// window's midpoint. Consecutive segments share overlap bytes of context.
//
// Callers must keep overlap < maxSize; the loop additionally refuses to
// produce a non-advancing window, so it terminates on any input.
func Chunk(text string, maxSize, overlap int) []string {
	if text == "" || maxSize <= 0 {
		return nil
	}
	if overlap < 0 {
		overlap = 0
	}

	var segments []string
	start := 0
	for start < len(text) {
		// end may point past the text; the final window is simply
		// shorter, and leaving end unclamped lets the advance below
		// step clear of the tail instead of re-reading it.
		end := start + maxSize
		window := text[start:min(end, len(text))]

		if end < len(text) {
			if cut := lastBreak(window); cut > maxSize/2 {
				window = window[:cut+1]
				end = start + cut + 1
			}
		}

		if seg := strings.TrimSpace(window); seg != "" {
			segments = append(segments, seg)
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return segments
}

// lastBreak returns the byte offset of the last sentence terminator or
// newline in s, or -1 when s contains neither.
func lastBreak(s string) int {
	period := strings.LastIndexByte(s, '.')
	newline := strings.LastIndexByte(s, '\n')
	if period > newline {
		return period
	}
	return newline
}
