// Package rewrite defines the domain types of the complaint rewrite
// pipeline and the privacy-minimizing projection of household context
// that is allowed to cross the provider boundary.
package rewrite

import (
	"encoding/json"
)

// Intent classifies what the sender is trying to accomplish with the
// message.
type Intent string

const (
	IntentRequest       Intent = "request"
	IntentBoundary      Intent = "boundary"
	IntentConcern       Intent = "concern"
	IntentClarification Intent = "clarification"
)

// ValidIntent reports whether s is one of the recognized intent values.
func ValidIntent(s string) bool {
	switch Intent(s) {
	case IntentRequest, IntentBoundary, IntentConcern, IntentClarification:
		return true
	}
	return false
}

// PowerMode captures the relative status of sender versus recipient,
// used to apply asymmetric tone rules.
type PowerMode string

const (
	PowerHigherSender    PowerMode = "higher_sender"
	PowerHigherRecipient PowerMode = "higher_recipient"
	PowerPeer            PowerMode = "peer"
)

// ValidPowerMode reports whether s is one of the recognized power modes.
func ValidPowerMode(s string) bool {
	switch PowerMode(s) {
	case PowerHigherSender, PowerHigherRecipient, PowerPeer:
		return true
	}
	return false
}

// Request is one rewrite job as owned by the surrounding job system.
// Immutable once created; nothing in this module mutates it.
type Request struct {
	ID           string `json:"rewrite_request_id"`
	TargetLocale string `json:"target_locale"`
	OriginalText string `json:"original_text"`
	Intent       Intent `json:"intent"`
}

// Response is the provider's rewritten output plus delivery metadata,
// produced by the response extractor and consumed by the safety
// evaluator.
type Response struct {
	RequestID       string `json:"rewrite_request_id"`
	RecipientUserID string `json:"recipient_user_id"`
	RewrittenText   string `json:"rewritten_text"`
	OutputLanguage  string `json:"output_language"`
}

// PreferenceSignal is one key/value pair of household preference data.
type PreferenceSignal struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PowerContext holds the power-dynamic portion of a context pack. The
// mode stays a plain string here; it is validated at the point of use.
type PowerContext struct {
	PowerMode string `json:"power_mode"`
}

// ContextPack is the rich, potentially identifying household context
// attached to a rewrite request. It must never be forwarded verbatim
// past the provider boundary; only the Minimize projection may cross.
type ContextPack struct {
	Power             PowerContext       `json:"power"`
	PreferenceSignals []PreferenceSignal `json:"preference_signals,omitempty"`
}

// UnmarshalJSON decodes a context pack leniently. Upstream rows are not
// trusted: fields of the wrong JSON type are dropped rather than
// failing the whole pack, and decoding never returns an error, so
// malformed sensitive input cannot surface in an error message.
func (c *ContextPack) UnmarshalJSON(data []byte) error {
	*c = ContextPack{}

	var shadow struct {
		Power             json.RawMessage `json:"power"`
		PreferenceSignals json.RawMessage `json:"preference_signals"`
	}
	// The error is ignored: whatever decoded still fills.
	_ = json.Unmarshal(data, &shadow)

	var power struct {
		PowerMode json.RawMessage `json:"power_mode"`
	}
	_ = json.Unmarshal(shadow.Power, &power)
	if s, ok := rawString(power.PowerMode); ok {
		c.Power.PowerMode = s
	}

	var entries []json.RawMessage
	_ = json.Unmarshal(shadow.PreferenceSignals, &entries)
	for _, entry := range entries {
		var sig struct {
			Key   json.RawMessage `json:"key"`
			Value json.RawMessage `json:"value"`
		}
		if json.Unmarshal(entry, &sig) != nil {
			continue
		}
		key, keyOK := rawString(sig.Key)
		value, valueOK := rawString(sig.Value)
		if !keyOK || !valueOK {
			continue
		}
		c.PreferenceSignals = append(c.PreferenceSignals, PreferenceSignal{Key: key, Value: value})
	}
	return nil
}

// Policy carries the sender-facing rewrite preferences configured in
// the app. Same lenient decode contract as ContextPack.
type Policy struct {
	Directness string `json:"directness"`
	Tone       string `json:"tone"`
}

// UnmarshalJSON drops wrong-typed policy fields instead of failing.
func (p *Policy) UnmarshalJSON(data []byte) error {
	*p = Policy{}

	var shadow struct {
		Directness json.RawMessage `json:"directness"`
		Tone       json.RawMessage `json:"tone"`
	}
	_ = json.Unmarshal(data, &shadow)

	if s, ok := rawString(shadow.Directness); ok {
		p.Directness = s
	}
	if s, ok := rawString(shadow.Tone); ok {
		p.Tone = s
	}
	return nil
}

// rawString decodes raw as a JSON string, reporting whether it was one.
// JSON null decodes into a string as a silent no-op, so anything not
// starting with a quote is rejected up front.
func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}
