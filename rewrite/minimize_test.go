package rewrite

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMinimizePowerMode(t *testing.T) {
	tests := []struct {
		name string
		mode string
		want string
	}{
		{name: "higher sender copied", mode: "higher_sender", want: "higher_sender"},
		{name: "higher recipient copied", mode: "higher_recipient", want: "higher_recipient"},
		{name: "peer copied", mode: "peer", want: "peer"},
		{name: "unknown omitted", mode: "landlord", want: ""},
		{name: "empty omitted", mode: "", want: ""},
		{name: "case sensitive", mode: "PEER", want: ""},
		{name: "whitespace not trimmed", mode: " peer", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pack := ContextPack{Power: PowerContext{PowerMode: tt.mode}}
			got := Minimize(pack, Policy{})
			if got.PowerMode != tt.want {
				t.Errorf("PowerMode = %q, want %q", got.PowerMode, tt.want)
			}
		})
	}
}

func TestMinimizeToneHints(t *testing.T) {
	tests := []struct {
		name           string
		policy         Policy
		wantDirectness string
		wantWarmth     string
	}{
		{name: "defaults", policy: Policy{}, wantDirectness: "soft", wantWarmth: "gentle"},
		{name: "neutral directness copied", policy: Policy{Directness: "neutral"}, wantDirectness: "neutral", wantWarmth: "gentle"},
		{name: "soft directness copied", policy: Policy{Directness: "soft"}, wantDirectness: "soft", wantWarmth: "gentle"},
		{name: "blunt directness rejected", policy: Policy{Directness: "blunt"}, wantDirectness: "soft", wantWarmth: "gentle"},
		{name: "neutral tone copied", policy: Policy{Tone: "neutral"}, wantDirectness: "soft", wantWarmth: "neutral"},
		{name: "harsh tone rejected", policy: Policy{Tone: "harsh"}, wantDirectness: "soft", wantWarmth: "gentle"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Minimize(ContextPack{}, tt.policy)
			if got.ToneHints.Directness != tt.wantDirectness {
				t.Errorf("Directness = %q, want %q", got.ToneHints.Directness, tt.wantDirectness)
			}
			if got.ToneHints.Warmth != tt.wantWarmth {
				t.Errorf("Warmth = %q, want %q", got.ToneHints.Warmth, tt.wantWarmth)
			}
			if got.ToneHints.Brevity != "concise" {
				t.Errorf("Brevity = %q, want concise", got.ToneHints.Brevity)
			}
		})
	}
}

func TestMinimizePolicyHintsConstant(t *testing.T) {
	// The hints are a fixed constant regardless of input.
	packs := []ContextPack{
		{},
		{Power: PowerContext{PowerMode: "higher_sender"}},
		{PreferenceSignals: []PreferenceSignal{{Key: "quiet_hours", Value: "22:00"}}},
	}
	for _, pack := range packs {
		got := Minimize(pack, Policy{Directness: "blunt", Tone: "harsh"})
		hints := got.PolicyHints
		if !hints.NoInsults || !hints.NoCommands || !hints.NoNewFacts || !hints.PreserveIntent {
			t.Errorf("PolicyHints = %+v, want all true", hints)
		}
	}
}

func TestMinimizePreferenceSignals(t *testing.T) {
	long := strings.Repeat("x", 33)
	okLen := strings.Repeat("y", 32)

	tests := []struct {
		name    string
		signals []PreferenceSignal
		want    []PreferenceSignal
	}{
		{
			name: "trimmed and kept",
			signals: []PreferenceSignal{
				{Key: "  quiet_hours  ", Value: " 22:00-07:00 "},
			},
			want: []PreferenceSignal{{Key: "quiet_hours", Value: "22:00-07:00"}},
		},
		{
			name: "empty key dropped",
			signals: []PreferenceSignal{
				{Key: "   ", Value: "22:00"},
				{Key: "tidy", Value: "high"},
			},
			want: []PreferenceSignal{{Key: "tidy", Value: "high"}},
		},
		{
			name: "empty value dropped",
			signals: []PreferenceSignal{
				{Key: "tidy", Value: "  "},
			},
			want: nil,
		},
		{
			name: "over 32 chars dropped, not truncated",
			signals: []PreferenceSignal{
				{Key: long, Value: "v"},
				{Key: "k", Value: long},
				{Key: okLen, Value: okLen},
			},
			want: []PreferenceSignal{{Key: okLen, Value: okLen}},
		},
		{
			name: "trailing spaces rescue an over-long field",
			signals: []PreferenceSignal{
				{Key: okLen + " ", Value: "v"},
			},
			want: []PreferenceSignal{{Key: okLen, Value: "v"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Minimize(ContextPack{PreferenceSignals: tt.signals}, Policy{})
			if len(got.PreferenceSignals) != len(tt.want) {
				t.Fatalf("got %d signals, want %d: %+v", len(got.PreferenceSignals), len(tt.want), got.PreferenceSignals)
			}
			for i, sig := range got.PreferenceSignals {
				if sig != tt.want[i] {
					t.Errorf("signal[%d] = %+v, want %+v", i, sig, tt.want[i])
				}
			}
		})
	}
}

func TestMinimizeFirstEightWindow(t *testing.T) {
	// Only the first 8 source entries are considered. Entries dropped
	// by the filter do not free a slot for later valid ones.
	var signals []PreferenceSignal
	for i := 0; i < 8; i++ {
		signals = append(signals, PreferenceSignal{Key: "", Value: ""})
	}
	signals = append(signals, PreferenceSignal{Key: "valid", Value: "yes"})

	got := Minimize(ContextPack{PreferenceSignals: signals}, Policy{})
	if len(got.PreferenceSignals) != 0 {
		t.Errorf("got %d signals, want 0 (ninth entry is outside the window)", len(got.PreferenceSignals))
	}

	// Ten valid entries cap at 8.
	signals = nil
	for i := 0; i < 10; i++ {
		signals = append(signals, PreferenceSignal{Key: "k", Value: "v"})
	}
	got = Minimize(ContextPack{PreferenceSignals: signals}, Policy{})
	if len(got.PreferenceSignals) != 8 {
		t.Errorf("got %d signals, want 8", len(got.PreferenceSignals))
	}
}

func TestMinimizeBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200

	properties := gopter.NewProperties(parameters)

	properties.Property("minimized signals are always size-bounded", prop.ForAll(
		func(keys []string, values []string, mode string) bool {
			var signals []PreferenceSignal
			for i := range keys {
				value := ""
				if i < len(values) {
					value = values[i]
				}
				signals = append(signals, PreferenceSignal{Key: keys[i], Value: value})
			}
			pack := ContextPack{
				Power:             PowerContext{PowerMode: mode},
				PreferenceSignals: signals,
			}
			got := Minimize(pack, Policy{})
			if len(got.PreferenceSignals) > 8 {
				return false
			}
			for _, sig := range got.PreferenceSignals {
				if utf8.RuneCountInString(sig.Key) > 32 || utf8.RuneCountInString(sig.Value) > 32 {
					return false
				}
				if sig.Key == "" || sig.Value == "" {
					return false
				}
			}
			if got.PowerMode != "" && !ValidPowerMode(got.PowerMode) {
				return false
			}
			return true
		},
		gen.SliceOf(gen.AnyString()),
		gen.SliceOf(gen.AnyString()),
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
