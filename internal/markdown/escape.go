package markdown

import "strings"

// Metacharacters Telegram's MarkdownV2 mode requires escaping outside
// code. Backticks are deliberately absent: escaping them would change
// inline code and fence markers.
const escapeChars = `_*[]()~>#+-=|{}.!`

// EscapeV2 escapes MarkdownV2 metacharacters in the segments outside
// fenced code blocks. Fence interiors pass through untouched, so a
// leading language tag keeps working. The fence markers themselves are
// preserved, which keeps the marker count of the input intact.
func EscapeV2(text string) string {
	if text == "" {
		return text
	}
	parts := strings.Split(text, fenceMarker)
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for i, part := range parts {
		if i > 0 {
			b.WriteString(fenceMarker)
		}
		if i%2 == 1 {
			b.WriteString(part)
			continue
		}
		escapeSegment(&b, part)
	}
	return b.String()
}

func escapeSegment(b *strings.Builder, s string) {
	for _, r := range s {
		if r < 0x80 && strings.ContainsRune(escapeChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
}
