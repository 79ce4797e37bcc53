// Package markdown sizes model replies for Telegram delivery: it
// splits long text into per-message fragments without bisecting fenced
// code blocks, and escapes MarkdownV2 metacharacters outside fences.
package markdown

import (
	"strings"
	"unicode/utf8"
)

const fenceMarker = "```"

// Split cuts text into fragments of at most max bytes each, in order.
// Cuts prefer a paragraph break, then a sentence end, within the
// trailing half of the window; a cut that would land inside a fenced
// code block is moved to (or before) the fence start so the whole
// block lands in the next fragment. Only the nearest fence pair in the
// remaining text is protected; blocks past it are handled on later
// iterations.
func Split(text string, max int) []string {
	if max <= 0 || len(text) <= max {
		return []string{text}
	}

	var fragments []string
	rest := text
	for len(rest) > max {
		cut := plainCut(rest, max)
		if start, end, ok := nearestFence(rest); ok && cut > start && cut < end {
			if idx := strings.LastIndex(rest[:start], "\n\n"); idx > start/2 {
				cut = idx
			} else {
				cut = start
			}
			if cut <= 0 {
				// The fence opens the remainder and overruns the
				// window; a hard cut is the only way to make progress.
				cut = plainCut(rest, max)
			}
		}
		fragment := strings.TrimRight(rest[:cut], " \t\r\n")
		if fragment != "" {
			fragments = append(fragments, fragment)
		}
		rest = rest[cut:]
	}
	if strings.TrimSpace(rest) != "" || len(fragments) == 0 {
		fragments = append(fragments, rest)
	}
	return fragments
}

// plainCut picks a cut point at most max, pulled back to a paragraph
// break or sentence end when one falls in the trailing half of the
// window.
func plainCut(s string, max int) int {
	window := s[:max]
	if idx := strings.LastIndex(window, "\n\n"); idx > max/2 {
		return idx
	}
	if idx := strings.LastIndex(window, ". "); idx > max/2 {
		return idx + 1 // keep the period with its sentence
	}
	// A hard cut must not bisect a multi-byte rune.
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return max
	}
	return cut
}

// nearestFence reports the first fence pair in s: the opening marker
// offset and the offset just past the closing marker.
func nearestFence(s string) (start, end int, ok bool) {
	start = strings.Index(s, fenceMarker)
	if start < 0 {
		return 0, 0, false
	}
	rel := strings.Index(s[start+len(fenceMarker):], fenceMarker)
	if rel < 0 {
		return 0, 0, false
	}
	end = start + len(fenceMarker) + rel + len(fenceMarker)
	return start, end, true
}
