package rewrite

import (
	"strings"
	"unicode/utf8"
)

const (
	// maxPreferenceSignals bounds how many preference entries may cross
	// the provider boundary.
	maxPreferenceSignals = 8
	// maxSignalFieldLen bounds every free-text field, in runes.
	maxSignalFieldLen = 32
)

// ToneHints tell the provider how the rewrite should sound. Values are
// drawn from a small fixed vocabulary, never free text.
type ToneHints struct {
	Directness string `json:"directness"`
	Warmth     string `json:"warmth"`
	Brevity    string `json:"brevity"`
}

// PolicyHints restate the fixed rewrite constraints with every job.
// Always all true; not influenced by any input.
type PolicyHints struct {
	NoInsults      bool `json:"no_insults"`
	NoCommands     bool `json:"no_commands"`
	NoNewFacts     bool `json:"no_new_facts"`
	PreserveIntent bool `json:"preserve_intent"`
}

// MinimizedSignals is the only projection of a ContextPack permitted to
// cross the provider boundary. Size-bounded: at most 8 preference
// entries, no free-text field longer than 32 characters.
type MinimizedSignals struct {
	PowerMode         string             `json:"power_mode,omitempty"`
	ToneHints         ToneHints          `json:"tone_hints"`
	PolicyHints       PolicyHints        `json:"policy_hints"`
	PreferenceSignals []PreferenceSignal `json:"preference_signals,omitempty"`
}

// Minimize projects a context pack and policy down to the whitelisted
// signal set. It never fails: missing or malformed fields degrade to
// conservative defaults instead of producing an error, so sensitive
// input cannot leak through an error message or log line. Anything not
// explicitly copied here is dropped, so new upstream fields never cross
// the boundary by accident.
func Minimize(pack ContextPack, policy Policy) MinimizedSignals {
	out := MinimizedSignals{
		ToneHints: ToneHints{
			Directness: "soft",
			Warmth:     "gentle",
			Brevity:    "concise",
		},
		PolicyHints: PolicyHints{
			NoInsults:      true,
			NoCommands:     true,
			NoNewFacts:     true,
			PreserveIntent: true,
		},
	}

	// Unrecognized modes are omitted entirely, not defaulted.
	if ValidPowerMode(pack.Power.PowerMode) {
		out.PowerMode = pack.Power.PowerMode
	}

	switch policy.Directness {
	case "soft", "neutral":
		out.ToneHints.Directness = policy.Directness
	}
	switch policy.Tone {
	case "gentle", "neutral":
		out.ToneHints.Warmth = policy.Tone
	}

	// Only the first 8 source entries are considered; entries dropped
	// by the filter below do not free a slot for later ones.
	src := pack.PreferenceSignals
	if len(src) > maxPreferenceSignals {
		src = src[:maxPreferenceSignals]
	}
	for _, sig := range src {
		key := strings.TrimSpace(sig.Key)
		value := strings.TrimSpace(sig.Value)
		if key == "" || value == "" {
			continue
		}
		if utf8.RuneCountInString(key) > maxSignalFieldLen || utf8.RuneCountInString(value) > maxSignalFieldLen {
			continue
		}
		out.PreferenceSignals = append(out.PreferenceSignals, PreferenceSignal{Key: key, Value: value})
	}
	return out
}
