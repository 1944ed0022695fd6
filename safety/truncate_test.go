package safety

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/rivo/uniseg"
)

func TestTruncateReasonASCII(t *testing.T) {
	got := TruncateReason("1234567890", 5)
	if got != "12345…" {
		t.Errorf("TruncateReason = %q, want %q", got, "12345…")
	}
	if utf8.RuneCountInString(got) != 6 {
		t.Errorf("result is %d runes, want 6", utf8.RuneCountInString(got))
	}
}

func TestTruncateReasonNoCut(t *testing.T) {
	tests := []struct {
		name string
		s    string
		max  int
	}{
		{name: "shorter than max", s: "abc", max: 5},
		{name: "exactly max", s: "abcde", max: 5},
		{name: "empty", s: "", max: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateReason(tt.s, tt.max); got != tt.s {
				t.Errorf("TruncateReason(%q, %d) = %q, want unchanged", tt.s, tt.max, got)
			}
		})
	}
}

func TestTruncateReasonZeroMax(t *testing.T) {
	if got := TruncateReason("", 0); got != "" {
		t.Errorf("TruncateReason(\"\", 0) = %q, want empty", got)
	}
	if got := TruncateReason("abc", 0); got != "…" {
		t.Errorf("TruncateReason(\"abc\", 0) = %q, want lone ellipsis", got)
	}
}

func TestTruncateReasonKeepsEmojiClustersIntact(t *testing.T) {
	family := "\U0001F468‍\U0001F469‍\U0001F467‍\U0001F466" // ZWJ family sequence
	s := strings.Repeat(family, 3)

	got := TruncateReason(s, 2)
	if got == s {
		t.Fatal("expected truncation for 3 clusters at max 2")
	}
	if !strings.HasSuffix(got, "…") {
		t.Fatalf("result %q does not end in ellipsis", got)
	}
	kept := strings.TrimSuffix(got, "…")
	if kept != strings.Repeat(family, 2) {
		t.Errorf("kept prefix %q, want two intact family sequences", kept)
	}
	if n := uniseg.GraphemeClusterCount(kept); n != 2 {
		t.Errorf("kept %d grapheme clusters, want 2", n)
	}
}

func TestTruncateReasonProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("keeps exactly max clusters plus ellipsis", prop.ForAll(
		func(s string, max int) bool {
			got := TruncateReason(s, max)
			total := uniseg.GraphemeClusterCount(s)
			if max <= 0 {
				if s == "" {
					return got == ""
				}
				return got == "…"
			}
			if total <= max {
				return got == s
			}
			if !strings.HasSuffix(got, "…") {
				return false
			}
			kept := strings.TrimSuffix(got, "…")
			return uniseg.GraphemeClusterCount(kept) == max && strings.HasPrefix(s, kept)
		},
		gen.AnyString(),
		gen.IntRange(0, 12),
	))

	properties.TestingRun(t)
}
