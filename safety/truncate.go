package safety

import (
	"strings"

	"github.com/rivo/uniseg"
)

const ellipsis = "…"

// TruncateReason bounds a diagnostic string to max grapheme clusters,
// appending one ellipsis rune when anything was cut. Counting grapheme
// clusters rather than bytes or runes keeps multi-codepoint sequences
// (ZWJ emoji, flags, combining marks) intact; user text shows up in
// harness diagnostics and must never be chopped mid-symbol.
func TruncateReason(s string, max int) string {
	if max <= 0 {
		if s == "" {
			return s
		}
		return ellipsis
	}
	var b strings.Builder
	n := 0
	gr := uniseg.NewGraphemes(s)
	for gr.Next() {
		if n == max {
			b.WriteString(ellipsis)
			return b.String()
		}
		b.WriteString(gr.Str())
		n++
	}
	return s
}
