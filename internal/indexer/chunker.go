package indexer

import (
	"strings"
	"unicode/utf8"
)

// TextChunk is one window of extracted text, indexed in document order. The
// index is part of the vector point ID, so it must be stable across runs for
// unchanged content.
type TextChunk struct {
	Text  string
	Index int
}

// sentence-final markers preferred as break points, strongest first.
var breakSentinels = []string{"。", "？", "！", ". ", "? ", "! "}

// ChunkText splits text into chunks of at most maxSize bytes with the given
// overlap, clamping window edges to rune boundaries and preferring paragraph,
// line and sentence breaks over hard cuts.
func ChunkText(text string, maxSize, overlap int) []TextChunk {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) <= maxSize {
		return []TextChunk{{Text: text, Index: 0}}
	}

	var chunks []TextChunk
	start := 0
	index := 0
	for start < len(text) {
		end := ceilRuneBoundary(text, min(start+maxSize, len(text)))

		actualEnd := end
		if end < len(text) {
			actualEnd = findBreakPoint(text, start, end)
		}

		chunk := strings.TrimSpace(text[start:actualEnd])
		if chunk != "" {
			chunks = append(chunks, TextChunk{Text: chunk, Index: index})
			index++
		}

		nextStart := actualEnd
		if actualEnd > overlap {
			nextStart = floorRuneBoundary(text, actualEnd-overlap)
		}
		if nextStart <= start {
			start = actualEnd
		} else {
			start = nextStart
		}
	}
	return chunks
}

// findBreakPoint looks backwards inside [start, maxEnd) for the best place
// to end the chunk: blank line, newline, sentence end, then any space.
func findBreakPoint(text string, start, maxEnd int) int {
	segment := text[start:maxEnd]

	if pos := strings.LastIndex(segment, "\n\n"); pos >= 0 {
		return start + pos + 2
	}
	if pos := strings.LastIndex(segment, "\n"); pos >= 0 {
		return start + pos + 1
	}
	for _, sentinel := range breakSentinels {
		if pos := strings.LastIndex(segment, sentinel); pos >= 0 {
			return start + pos + len(sentinel)
		}
	}
	if pos := strings.LastIndex(segment, " "); pos >= 0 {
		return start + pos + 1
	}
	return maxEnd
}

func ceilRuneBoundary(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	for pos < len(text) && !utf8.RuneStart(text[pos]) {
		pos++
	}
	return pos
}

func floorRuneBoundary(text string, pos int) int {
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
