// Package fixture loads versioned regression cases and replays
// externally produced rewrite outputs against them, emitting one
// NDJSON report line per case.
package fixture

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/roomnote/softsend/rewrite"
	"github.com/roomnote/softsend/safety"
)

// Fixture is one versioned regression case: a literal original message
// paired with the safety outcomes its rewrite is expected to raise.
// Read-only once loaded.
type Fixture struct {
	CaseID                    string                 `json:"case_id"`
	Topic                     string                 `json:"topic"`
	PowerMode                 rewrite.PowerMode      `json:"power_mode"`
	RewriteStrength           string                 `json:"rewrite_strength"`
	SourceLocale              string                 `json:"source_locale"`
	TargetLocale              string                 `json:"target_locale"`
	OriginalText              string                 `json:"original_text"`
	ExpectedIntent            rewrite.Intent         `json:"expected_intent"`
	ExpectedLexiconViolations []safety.ViolationCode `json:"expected_lexicon_violations"`
}

// fixtureSchema rejects malformed fixture files before decoding, so a
// bad file fails the run with a pointed error instead of silently
// skewing the regression baseline.
const fixtureSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": [
    "case_id",
    "topic",
    "power_mode",
    "rewrite_strength",
    "source_locale",
    "target_locale",
    "original_text",
    "expected_intent",
    "expected_lexicon_violations"
  ],
  "additionalProperties": false,
  "properties": {
    "case_id": {"type": "string", "minLength": 1},
    "topic": {"type": "string"},
    "power_mode": {"enum": ["higher_sender", "higher_recipient", "peer"]},
    "rewrite_strength": {"type": "string"},
    "source_locale": {"type": "string", "minLength": 1},
    "target_locale": {"type": "string", "minLength": 1},
    "original_text": {"type": "string", "minLength": 1},
    "expected_intent": {"enum": ["request", "boundary", "concern", "clarification"]},
    "expected_lexicon_violations": {
      "type": "array",
      "items": {"type": "string"}
    }
  }
}`

var compiledFixtureSchema = jsonschema.MustCompileString("fixture.schema.json", fixtureSchema)

// Set is a loaded, immutable fixture collection keyed by case_id.
type Set struct {
	byID  map[string]Fixture
	order []string
}

// Load reads every fixture file matching the doublestar glob pattern.
// Any unreadable, schema-invalid, or duplicate-id fixture fails the
// whole load: fixtures are operator-owned input, not provider output,
// so problems here are usage errors rather than data to degrade around.
func Load(pattern string) (*Set, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expand fixture glob %q: %w", pattern, err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no fixtures match %q", pattern)
	}
	sort.Strings(paths)

	set := &Set{byID: make(map[string]Fixture, len(paths))}
	for _, path := range paths {
		fx, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		if _, dup := set.byID[fx.CaseID]; dup {
			return nil, fmt.Errorf("duplicate case_id %q in %s", fx.CaseID, path)
		}
		set.byID[fx.CaseID] = fx
		set.order = append(set.order, fx.CaseID)
	}
	return set, nil
}

func loadFile(path string) (Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Fixture{}, fmt.Errorf("read fixture: %w", err)
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := compiledFixtureSchema.Validate(doc); err != nil {
		return Fixture{}, fmt.Errorf("validate fixture %s: %w", path, err)
	}
	var fx Fixture
	if err := json.Unmarshal(data, &fx); err != nil {
		return Fixture{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return fx, nil
}

// Get returns the fixture for a case id.
func (s *Set) Get(caseID string) (Fixture, bool) {
	fx, ok := s.byID[caseID]
	return fx, ok
}

// Len returns the number of loaded fixtures.
func (s *Set) Len() int {
	return len(s.byID)
}

// CaseIDs returns the ids in load order.
func (s *Set) CaseIDs() []string {
	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}
