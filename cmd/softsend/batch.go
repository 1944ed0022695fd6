package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roomnote/softsend/llm"
	"github.com/roomnote/softsend/rewrite"
)

// requestSpec is one NDJSON input row: a rewrite job plus the context
// needed to build its provider request. Context and policy decode
// leniently; a malformed pack degrades to fewer signals, not a failed
// job.
type requestSpec struct {
	RewriteRequestID string              `json:"rewrite_request_id"`
	RecipientUserID  string              `json:"recipient_user_id"`
	TargetLocale     string              `json:"target_locale"`
	Intent           string              `json:"intent"`
	RoutingDecision  string              `json:"routing_decision"`
	OriginalText     string              `json:"original_text"`
	Context          rewrite.ContextPack `json:"context_pack"`
	Policy           rewrite.Policy      `json:"policy"`
}

// indexEntry joins a batch custom_id back to delivery metadata that
// must not travel to the provider. Written next to the batch file,
// never uploaded.
type indexEntry struct {
	CustomID        string `json:"custom_id"`
	TargetLocale    string `json:"target_locale"`
	RecipientUserID string `json:"recipient_user_id"`
}

func batchCmd(opts *rootOptions) *cobra.Command {
	var (
		inputPath     string
		outputPath    string
		indexPath     string
		model         string
		promptVersion string
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Build a provider batch input file from rewrite requests",
		Long: `Batch reads rewrite requests as NDJSON and writes one provider batch
record per request. Household context is minimized before it enters the
request body; the full context pack never leaves the machine.

With --index-out, a local join index (custom_id, target locale, recipient)
is written alongside, for use by extract after the batch returns.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := setup(opts)
			if err != nil {
				return err
			}
			if model == "" {
				model = cfg.Provider.Model
			}
			if promptVersion == "" {
				promptVersion = cfg.Rewrite.PromptVersion
			}

			in, closeIn, err := openInput(inputPath)
			if err != nil {
				return err
			}
			defer closeIn()

			out, closeOut, err := createOutput(outputPath)
			if err != nil {
				return err
			}
			defer closeOut()

			var index io.Writer
			if indexPath != "" {
				idx, closeIdx, err := createOutput(indexPath)
				if err != nil {
					return err
				}
				defer closeIdx()
				index = idx
			}

			builder := llm.NewBuilder(
				llm.WithStructuredOutput(!cfg.Provider.DisableStructuredOutput),
				llm.WithContextSignals(!cfg.Rewrite.DisableContextSignals),
			)

			return runBatch(builder, batchParams{
				model:         model,
				promptVersion: promptVersion,
				defaultLocale: cfg.Rewrite.DefaultTargetLocale,
			}, in, out, index)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Rewrite requests NDJSON (- for stdin)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Batch input JSONL (- for stdout)")
	cmd.Flags().StringVar(&indexPath, "index-out", "", "Write a local join index NDJSON to this path")
	cmd.Flags().StringVar(&model, "model", "", "Model slug (defaults to configured provider.model)")
	cmd.Flags().StringVar(&promptVersion, "prompt-version", "", "Prompt version (defaults to configured rewrite.prompt_version)")

	return cmd
}

type batchParams struct {
	model         string
	promptVersion string
	defaultLocale string
}

func runBatch(builder *llm.Builder, params batchParams, in io.Reader, out, index io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	enc := json.NewEncoder(out)
	var indexEnc *json.Encoder
	if index != nil {
		indexEnc = json.NewEncoder(index)
	}

	built, skipped := 0, 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var spec requestSpec
		if err := json.Unmarshal(line, &spec); err != nil {
			slog.Warn("skipping malformed request line", "line", lineNo, "error", err)
			skipped++
			continue
		}
		if spec.OriginalText == "" {
			slog.Warn("skipping request without original_text", "line", lineNo)
			skipped++
			continue
		}
		if !rewrite.ValidIntent(spec.Intent) {
			slog.Warn("skipping request with unknown intent", "line", lineNo, "intent", spec.Intent)
			skipped++
			continue
		}
		if spec.RewriteRequestID == "" {
			spec.RewriteRequestID = uuid.NewString()
			slog.Debug("assigned request id", "line", lineNo, "rewrite_request_id", spec.RewriteRequestID)
		}
		if spec.TargetLocale == "" {
			spec.TargetLocale = params.defaultLocale
		}

		rec := builder.BuildBatchJobLine(spec.RewriteRequestID, llm.RequestFields{
			Model:           params.model,
			PromptVersion:   params.promptVersion,
			TargetLocale:    spec.TargetLocale,
			Intent:          rewrite.Intent(spec.Intent),
			ContextPack:     spec.Context,
			Policy:          spec.Policy,
			OriginalText:    spec.OriginalText,
			RoutingDecision: spec.RoutingDecision,
		})
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write batch record %s: %w", rec.CustomID, err)
		}

		if indexEnc != nil {
			entry := indexEntry{
				CustomID:        spec.RewriteRequestID,
				TargetLocale:    spec.TargetLocale,
				RecipientUserID: spec.RecipientUserID,
			}
			if err := indexEnc.Encode(entry); err != nil {
				return fmt.Errorf("write index entry %s: %w", entry.CustomID, err)
			}
		}
		built++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read requests: %w", err)
	}

	if built == 0 {
		return fmt.Errorf("no batch records built (%d lines skipped)", skipped)
	}
	slog.Info("batch file built", "records", built, "skipped", skipped, "model", params.model, "prompt_version", params.promptVersion)
	return nil
}
