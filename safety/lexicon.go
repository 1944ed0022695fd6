package safety

import (
	"regexp"
	"strings"

	"github.com/roomnote/softsend/rewrite"
)

// The lexicon is a fixed rule table compiled once at init and never
// mutated, so it is safe for unbounded concurrent use. All patterns
// run against lowercased text with curly apostrophes folded to
// straight ones; see normalizeText.

// lexiconRule pairs a violation code with one compiled pattern.
type lexiconRule struct {
	code    ViolationCode
	pattern *regexp.Regexp
}

var hardRules = []lexiconRule{
	// Word lists are intentionally non-exhaustive; additions go through
	// content review.
	{ViolationVulgarity, regexp.MustCompile(`\b(?:fuck(?:ing|ed)?|shit(?:ty|s)?|assholes?|bitch(?:es)?|bastards?|damn|crap|piss(?:ed)?)\b`)},
	{ViolationSlur, regexp.MustCompile(`\b(?:retard(?:ed|s)?|spaz|midgets?)\b`)},
	{ViolationPersonalAttack, regexp.MustCompile(`\byou\b[^.!?\n]{0,80}?\b(?:stupid|lazy|disgusting|selfish|idiots?|idiotic)\b`)},
	{ViolationAuthority, regexp.MustCompile(`\b(?:my house|my property|as your landlord|i own this (?:house|place|apartment)|house rules|my rules|you must|you have to)\b`)},
	{ViolationPreferenceDisclosure, regexp.MustCompile(`(?:your preferences|tailored (?:for|to) you|based on your answers|your personality profile|personalized for you)`)},
	{ViolationMedical, regexp.MustCompile(`\b(?:ocd|adhd|bipolar|narcissis(?:ts?|tic)|sociopaths?|psychopaths?|hoarders?)\b`)},
	{ViolationBlame, regexp.MustCompile(`\b(?:your fault|you always|you never)\b`)},
}

var warnRules = []lexiconRule{
	{ViolationSarcasmWarn, regexp.MustCompile(`(?:thanks a lot|how convenient|good luck with that|sure, whatever|oh,? great|nice of you to)`)},
}

// powerRules add authority patterns conditioned on the relationship.
// A higher-status sender must not issue commands at all; urgency
// framing toward a higher-status recipient is treated as overstepping.
var powerRules = map[rewrite.PowerMode]*regexp.Regexp{
	rewrite.PowerHigherSender:    regexp.MustCompile(`\b(?:must|have to|rules)\b`),
	rewrite.PowerHigherRecipient: regexp.MustCompile(`\b(?:must|have to|immediately)\b`),
}

// hedgeWords are counted per whitespace token. hedge_warn is a density
// check, not a presence check: it fires only when hedge tokens exceed
// hedgeDensityPct percent of all tokens, so normal soft language does
// not trip it.
var hedgeWords = map[string]bool{
	"maybe":      true,
	"perhaps":    true,
	"possibly":   true,
	"somewhat":   true,
	"kinda":      true,
	"sorta":      true,
	"apparently": true,
	"presumably": true,
}

const hedgeDensityPct = 1

// softeningMarkers satisfy the intent check for request/boundary
// messages: at least one must survive the rewrite.
var softeningMarkers = []string{
	"could you",
	"would you",
	"please",
	"can you",
	"let's",
	"would it be",
}

// normalizeText lowercases s and folds curly apostrophes so the
// patterns above only need straight-quote forms.
func normalizeText(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "’", "'")
}

// hedgeDensityExceeded reports whether hedge tokens strictly exceed
// hedgeDensityPct percent of whitespace-delimited tokens. Integer
// arithmetic keeps the boundary exact: a text at exactly the threshold
// does not fire.
func hedgeDensityExceeded(text string) bool {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return false
	}
	hedges := 0
	for _, token := range tokens {
		if hedgeWords[strings.Trim(token, ".,!?;:\"'()")] {
			hedges++
		}
	}
	return hedges*100 > len(tokens)*hedgeDensityPct
}

// containsSoftener reports whether normalized text carries at least one
// softening-request marker.
func containsSoftener(text string) bool {
	for _, marker := range softeningMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// RuleInfo describes one violation code for operator tooling.
type RuleInfo struct {
	Code     ViolationCode `json:"code"`
	Severity string        `json:"severity"`
	Detector string        `json:"detector"`
	Patterns int           `json:"patterns"`
}

// Rules returns the full violation taxonomy in canonical order,
// including codes without an automated detector.
func Rules() []RuleInfo {
	patternCount := make(map[ViolationCode]int)
	for _, rule := range hardRules {
		patternCount[rule.code]++
	}
	for _, rule := range warnRules {
		patternCount[rule.code]++
	}
	patternCount[ViolationAuthority] += len(powerRules)

	infos := make([]RuleInfo, 0, len(codeOrder))
	for _, code := range codeOrder {
		info := RuleInfo{Code: code, Severity: "info", Detector: "none"}
		switch {
		case hardCodes[code]:
			info.Severity = "hard"
		case warnCodes[code]:
			info.Severity = "warn"
		}
		if n := patternCount[code]; n > 0 {
			info.Detector = "pattern"
			info.Patterns = n
		}
		switch code {
		case ViolationHedgeWarn:
			info.Detector = "token_density"
		case ViolationNonTargetLocale:
			info.Detector = "locale_compare"
		}
		infos = append(infos, info)
	}
	return infos
}
