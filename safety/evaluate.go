package safety

import (
	"strings"

	"github.com/roomnote/softsend/rewrite"
)

// JudgeVersion identifies the lexicon revision stamped into every
// result, so stored reports stay comparable across rule changes.
const JudgeVersion = "lexicon-v1"

const defaultDatasetVersion = "unversioned"

// Options carries evaluation metadata not derivable from the
// request/response pair itself. The zero value is valid.
type Options struct {
	// DatasetVersion labels the fixture set under evaluation.
	DatasetVersion string
}

// Result is the verdict for one completed rewrite. Produced fresh per
// call and never mutated afterwards.
type Result struct {
	SchemaValid     bool            `json:"schema_valid"`
	LexiconPass     bool            `json:"lexicon_pass"`
	ToneSafety      Verdict         `json:"tone_safety"`
	IntentPreserved Verdict         `json:"intent_preserved"`
	Violations      []ViolationCode `json:"violations"`
	JudgeVersion    string          `json:"judge_version"`
	DatasetVersion  string          `json:"dataset_version"`
}

// Evaluate applies the fixed lexicon to a completed rewrite.
// Deterministic, side-effect free, and total: structural problems with
// the response surface as schema_valid=false, never as an error, and
// the full lexicon still runs over whatever text is present.
func Evaluate(req rewrite.Request, resp rewrite.Response, pack rewrite.ContextPack, opts Options) Result {
	res := Result{
		SchemaValid:     resp.RequestID != "" && resp.RecipientUserID != "" && resp.RewrittenText != "",
		IntentPreserved: VerdictPass,
		JudgeVersion:    JudgeVersion,
		DatasetVersion:  opts.DatasetVersion,
	}
	if res.DatasetVersion == "" {
		res.DatasetVersion = defaultDatasetVersion
	}

	seen := make(map[ViolationCode]bool)

	if !strings.EqualFold(resp.OutputLanguage, req.TargetLocale) {
		seen[ViolationNonTargetLocale] = true
	}

	text := normalizeText(resp.RewrittenText)

	for _, rule := range hardRules {
		if rule.pattern.MatchString(text) {
			seen[rule.code] = true
		}
	}
	if pattern, ok := powerRules[rewrite.PowerMode(pack.Power.PowerMode)]; ok {
		if pattern.MatchString(text) {
			seen[ViolationAuthority] = true
		}
	}
	for _, rule := range warnRules {
		if rule.pattern.MatchString(text) {
			seen[rule.code] = true
		}
	}
	if hedgeDensityExceeded(text) {
		seen[ViolationHedgeWarn] = true
	}

	if req.Intent == rewrite.IntentRequest || req.Intent == rewrite.IntentBoundary {
		if !containsSoftener(text) {
			res.IntentPreserved = VerdictWarn
		}
	}

	anyHard, anyWarn := false, false
	for code := range seen {
		switch {
		case hardCodes[code]:
			anyHard = true
		case warnCodes[code]:
			anyWarn = true
		}
	}
	res.LexiconPass = !anyHard
	switch {
	case anyHard:
		res.ToneSafety = VerdictFail
	case anyWarn:
		res.ToneSafety = VerdictWarn
	default:
		res.ToneSafety = VerdictPass
	}

	res.Violations = orderedCodes(seen)
	return res
}

// orderedCodes flattens a violation set into the canonical reporting
// order. Always returns a non-nil slice so reports serialize as [].
func orderedCodes(seen map[ViolationCode]bool) []ViolationCode {
	codes := make([]ViolationCode, 0, len(seen))
	for _, code := range codeOrder {
		if seen[code] {
			codes = append(codes, code)
		}
	}
	return codes
}
