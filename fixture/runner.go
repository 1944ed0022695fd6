package fixture

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/roomnote/softsend/rewrite"
	"github.com/roomnote/softsend/safety"
)

// maxOutputLine bounds a single NDJSON output line. Rewrites are capped
// far below this; anything larger is runaway provider output.
const maxOutputLine = 1 << 20

// previewGraphemes is how much rewritten text an unknown-case
// diagnostic may quote.
const previewGraphemes = 40

// Output is one externally produced rewrite, keyed back to a fixture
// by case id.
type Output struct {
	CaseID          string `json:"case_id"`
	RewrittenText   string `json:"rewritten_text"`
	OutputLanguage  string `json:"output_language"`
	RecipientUserID string `json:"recipient_user_id,omitempty"`
}

// ReportLine is one NDJSON record of the regression report: the full
// evaluation verdict plus the expectation comparison.
type ReportLine struct {
	CaseID                    string                 `json:"case_id"`
	Eval                      safety.Result          `json:"eval_result"`
	ExpectedLexiconViolations []safety.ViolationCode `json:"expected_lexicon_violations"`
	MatchedExpected           bool                   `json:"matched_expected"`
}

// Summary aggregates a replay run.
type Summary struct {
	Evaluated int `json:"evaluated"`
	Matched   int `json:"matched"`
	Unknown   int `json:"unknown"`
	Skipped   int `json:"skipped"`
}

// Runner replays outputs against a fixture set.
type Runner struct {
	logger         *slog.Logger
	datasetVersion string
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger routes the runner's diagnostics. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithDatasetVersion stamps every evaluation in the report with the
// fixture dataset version.
func WithDatasetVersion(version string) RunnerOption {
	return func(r *Runner) {
		r.datasetVersion = version
	}
}

// NewRunner builds a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadOutputs decodes NDJSON rewrite outputs. Malformed lines are
// logged and skipped rather than failing the run: one corrupt provider
// line must not block the rest of the regression report. The returned
// count is how many lines were dropped.
func (r *Runner) ReadOutputs(src io.Reader) ([]Output, int) {
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), maxOutputLine)

	var outputs []Output
	skipped := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var out Output
		if err := json.Unmarshal(line, &out); err != nil {
			r.logger.Warn("skipping malformed output line", "line", lineNo, "error", err)
			skipped++
			continue
		}
		if out.CaseID == "" {
			r.logger.Warn("skipping output line without case_id", "line", lineNo)
			skipped++
			continue
		}
		outputs = append(outputs, out)
	}
	if err := scanner.Err(); err != nil {
		r.logger.Warn("stopped reading outputs", "line", lineNo, "error", err)
	}
	return outputs, skipped
}

// Run evaluates each output against its fixture and writes one report
// line per evaluated case to dst. An output whose case id has no
// fixture is diagnosed and skipped; it never appears in the report
// stream.
func (r *Runner) Run(set *Set, outputs []Output, dst io.Writer) (Summary, error) {
	enc := json.NewEncoder(dst)
	var sum Summary
	for _, out := range outputs {
		fx, ok := set.Get(out.CaseID)
		if !ok {
			r.logger.Warn("output references unknown case",
				"case_id", out.CaseID,
				"preview", safety.TruncateReason(out.RewrittenText, previewGraphemes))
			sum.Unknown++
			continue
		}

		req := rewrite.Request{
			ID:           fx.CaseID,
			TargetLocale: fx.TargetLocale,
			OriginalText: fx.OriginalText,
			Intent:       fx.ExpectedIntent,
		}
		resp := rewrite.Response{
			RequestID:       out.CaseID,
			RecipientUserID: out.RecipientUserID,
			RewrittenText:   out.RewrittenText,
			OutputLanguage:  out.OutputLanguage,
		}
		pack := rewrite.ContextPack{
			Power: rewrite.PowerContext{PowerMode: string(fx.PowerMode)},
		}

		result := safety.Evaluate(req, resp, pack, safety.Options{DatasetVersion: r.datasetVersion})
		matched := MatchedExpected(fx.ExpectedLexiconViolations, result.Violations)

		line := ReportLine{
			CaseID:                    fx.CaseID,
			Eval:                      result,
			ExpectedLexiconViolations: fx.ExpectedLexiconViolations,
			MatchedExpected:           matched,
		}
		if err := enc.Encode(line); err != nil {
			return sum, fmt.Errorf("write report line for case %s: %w", fx.CaseID, err)
		}
		sum.Evaluated++
		if matched {
			sum.Matched++
		}
	}
	return sum, nil
}

// MatchedExpected reports whether every expected violation is present
// in the actual set. Extra actual violations do not break the match;
// the check is one-directional so a stricter detector never flips an
// old baseline to failing on this axis.
func MatchedExpected(expected, actual []safety.ViolationCode) bool {
	if len(expected) == 0 {
		return true
	}
	got := make(map[safety.ViolationCode]bool, len(actual))
	for _, code := range actual {
		got[code] = true
	}
	for _, code := range expected {
		if !got[code] {
			return false
		}
	}
	return true
}
