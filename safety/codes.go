// Package safety deterministically classifies rewritten complaint text
// against a fixed content-safety lexicon. It is a rule gate, not a
// learned classifier: every check is a precompiled pattern or a simple
// token statistic, so identical input always yields identical verdicts.
package safety

// ViolationCode names one category of unsafe or policy-violating
// content.
type ViolationCode string

const (
	ViolationVulgarity            ViolationCode = "vulgarity"
	ViolationSlur                 ViolationCode = "slur"
	ViolationPersonalAttack       ViolationCode = "personal_attack"
	ViolationAuthority            ViolationCode = "authority"
	ViolationPreferenceDisclosure ViolationCode = "preference_disclosure"
	ViolationMedical              ViolationCode = "medical"
	ViolationBlame                ViolationCode = "blame"

	// ViolationNewFact is declared in the taxonomy but has no automated
	// detector yet. Reserved for an upstream judge integration; a
	// fixture may still expect it once such a judge stamps it.
	ViolationNewFact ViolationCode = "new_fact"

	ViolationSarcasmWarn ViolationCode = "sarcasm_warn"
	ViolationHedgeWarn   ViolationCode = "hedge_warn"

	// ViolationNonTargetLocale marks output not written in the
	// requested language. It gates delivery on its own and does not
	// feed the tone aggregation.
	ViolationNonTargetLocale ViolationCode = "non_target_locale"
)

// codeOrder is the canonical reporting order. Violation sets compare
// order-insensitively; reports always list codes in this order.
var codeOrder = []ViolationCode{
	ViolationVulgarity,
	ViolationSlur,
	ViolationPersonalAttack,
	ViolationAuthority,
	ViolationPreferenceDisclosure,
	ViolationMedical,
	ViolationBlame,
	ViolationNewFact,
	ViolationSarcasmWarn,
	ViolationHedgeWarn,
	ViolationNonTargetLocale,
}

// Severity buckets for aggregation. Hard violations fail tone_safety
// and lexicon_pass; warn codes downgrade tone_safety to warn; anything
// else is informational.
var (
	hardCodes = map[ViolationCode]bool{
		ViolationVulgarity:            true,
		ViolationSlur:                 true,
		ViolationPersonalAttack:       true,
		ViolationAuthority:            true,
		ViolationPreferenceDisclosure: true,
		ViolationMedical:              true,
		ViolationBlame:                true,
		ViolationNewFact:              true,
	}
	warnCodes = map[ViolationCode]bool{
		ViolationSarcasmWarn: true,
		ViolationHedgeWarn:   true,
	}
)

// Verdict is a three-level safety rating.
type Verdict string

const (
	VerdictPass Verdict = "pass"
	VerdictWarn Verdict = "warn"
	VerdictFail Verdict = "fail"
)
