package rewrite

import (
	"encoding/json"
	"testing"
)

func TestContextPackUnmarshalLenient(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		wantMode    string
		wantSignals []PreferenceSignal
	}{
		{
			name:     "well formed",
			input:    `{"power":{"power_mode":"peer"},"preference_signals":[{"key":"tidy","value":"high"}]}`,
			wantMode: "peer",
			wantSignals: []PreferenceSignal{
				{Key: "tidy", Value: "high"},
			},
		},
		{
			name:     "power mode wrong type dropped",
			input:    `{"power":{"power_mode":42},"preference_signals":[{"key":"a","value":"b"}]}`,
			wantMode: "",
			wantSignals: []PreferenceSignal{
				{Key: "a", Value: "b"},
			},
		},
		{
			name:     "power wrong type does not poison signals",
			input:    `{"power":"oops","preference_signals":[{"key":"a","value":"b"}]}`,
			wantMode: "",
			wantSignals: []PreferenceSignal{
				{Key: "a", Value: "b"},
			},
		},
		{
			name:     "non string signal entries dropped",
			input:    `{"preference_signals":[{"key":1,"value":"b"},{"key":"a","value":null},{"key":"keep","value":"me"},"junk"]}`,
			wantMode: "",
			wantSignals: []PreferenceSignal{
				{Key: "keep", Value: "me"},
			},
		},
		{
			name:        "signals wrong type dropped",
			input:       `{"power":{"power_mode":"higher_sender"},"preference_signals":"nope"}`,
			wantMode:    "higher_sender",
			wantSignals: nil,
		},
		{
			name:        "not an object decodes to zero pack",
			input:       `"just a string"`,
			wantMode:    "",
			wantSignals: nil,
		},
		{
			name:        "empty object",
			input:       `{}`,
			wantMode:    "",
			wantSignals: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pack ContextPack
			if err := json.Unmarshal([]byte(tt.input), &pack); err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			if pack.Power.PowerMode != tt.wantMode {
				t.Errorf("PowerMode = %q, want %q", pack.Power.PowerMode, tt.wantMode)
			}
			if len(pack.PreferenceSignals) != len(tt.wantSignals) {
				t.Fatalf("got %d signals, want %d: %+v", len(pack.PreferenceSignals), len(tt.wantSignals), pack.PreferenceSignals)
			}
			for i, sig := range pack.PreferenceSignals {
				if sig != tt.wantSignals[i] {
					t.Errorf("signal[%d] = %+v, want %+v", i, sig, tt.wantSignals[i])
				}
			}
		})
	}
}

func TestPolicyUnmarshalLenient(t *testing.T) {
	tests := []struct {
		name           string
		input          string
		wantDirectness string
		wantTone       string
	}{
		{name: "well formed", input: `{"directness":"neutral","tone":"gentle"}`, wantDirectness: "neutral", wantTone: "gentle"},
		{name: "wrong types dropped", input: `{"directness":3,"tone":["x"]}`, wantDirectness: "", wantTone: ""},
		{name: "one side survives", input: `{"directness":false,"tone":"neutral"}`, wantDirectness: "", wantTone: "neutral"},
		{name: "not an object", input: `[1,2]`, wantDirectness: "", wantTone: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var policy Policy
			if err := json.Unmarshal([]byte(tt.input), &policy); err != nil {
				t.Fatalf("Unmarshal returned error: %v", err)
			}
			if policy.Directness != tt.wantDirectness {
				t.Errorf("Directness = %q, want %q", policy.Directness, tt.wantDirectness)
			}
			if policy.Tone != tt.wantTone {
				t.Errorf("Tone = %q, want %q", policy.Tone, tt.wantTone)
			}
		})
	}
}

func TestValidIntent(t *testing.T) {
	valid := []string{"request", "boundary", "concern", "clarification"}
	for _, s := range valid {
		if !ValidIntent(s) {
			t.Errorf("ValidIntent(%q) = false, want true", s)
		}
	}
	invalid := []string{"", "REQUEST", "demand", "request "}
	for _, s := range invalid {
		if ValidIntent(s) {
			t.Errorf("ValidIntent(%q) = true, want false", s)
		}
	}
}
