package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roomnote/softsend/fixture"
	"github.com/roomnote/softsend/llm"
	"github.com/roomnote/softsend/safety"
)

// batchResult is one line of the provider's batch output file.
type batchResult struct {
	CustomID string         `json:"custom_id"`
	Response *batchResponse `json:"response"`
	Error    *batchError    `json:"error"`
}

type batchResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

type batchError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func extractCmd(opts *rootOptions) *cobra.Command {
	var (
		inputPath  string
		outputPath string
		indexPath  string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract rewritten text from provider batch results",
		Long: `Extract reads a provider batch output file and emits one NDJSON row per
successfully rewritten request. Provider-side failures and unusable
response bodies are logged and skipped.

With --index, the join index written by batch --index-out restores each
row's output language and recipient, which never travel to the provider.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := setup(opts); err != nil {
				return err
			}

			var index map[string]indexEntry
			if indexPath != "" {
				var err error
				index, err = loadIndex(indexPath)
				if err != nil {
					return err
				}
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

			return runExtract(in, out, index)
		},
	}

	cmd.Flags().StringVarP(&inputPath, "input", "i", "-", "Provider batch results JSONL (- for stdin)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "-", "Rewrite outputs NDJSON (- for stdout)")
	cmd.Flags().StringVar(&indexPath, "index", "", "Join index written by batch --index-out")

	return cmd
}

// loadIndex reads a join index file. The index is produced by this
// toolchain, so a malformed line is an operator error and fails hard.
func loadIndex(path string) (map[string]indexEntry, error) {
	f, closeF, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer closeF()

	index := make(map[string]indexEntry)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry indexEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			return nil, fmt.Errorf("parse index %s line %d: %w", path, lineNo, err)
		}
		if entry.CustomID == "" {
			return nil, fmt.Errorf("index %s line %d has no custom_id", path, lineNo)
		}
		index[entry.CustomID] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read index %s: %w", path, err)
	}
	return index, nil
}

func runExtract(in io.Reader, out io.Writer, index map[string]indexEntry) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	enc := json.NewEncoder(out)
	extracted, skipped := 0, 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var res batchResult
		if err := json.Unmarshal(line, &res); err != nil {
			slog.Warn("skipping malformed result line", "line", lineNo, "error", err)
			skipped++
			continue
		}
		if res.CustomID == "" {
			slog.Warn("skipping result without custom_id", "line", lineNo)
			skipped++
			continue
		}
		if res.Error != nil {
			slog.Warn("skipping failed request", "custom_id", res.CustomID, "code", res.Error.Code, "message", res.Error.Message)
			skipped++
			continue
		}
		if res.Response == nil || res.Response.StatusCode != 200 {
			status := 0
			if res.Response != nil {
				status = res.Response.StatusCode
			}
			slog.Warn("skipping non-success response", "custom_id", res.CustomID, "status_code", status)
			skipped++
			continue
		}

		text := llm.ExtractRewrittenText(res.Response.Body)
		if text == "" {
			slog.Warn("no rewritten text in response",
				"custom_id", res.CustomID,
				"body_preview", safety.TruncateReason(string(res.Response.Body), 60))
			skipped++
			continue
		}

		row := fixture.Output{
			CaseID:        res.CustomID,
			RewrittenText: text,
		}
		if entry, ok := index[res.CustomID]; ok {
			row.OutputLanguage = entry.TargetLocale
			row.RecipientUserID = entry.RecipientUserID
		} else if index != nil {
			slog.Warn("custom_id missing from index", "custom_id", res.CustomID)
		}

		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("write output row %s: %w", res.CustomID, err)
		}
		extracted++
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read results: %w", err)
	}

	if extracted == 0 {
		return fmt.Errorf("no rewrites extracted (%d lines skipped)", skipped)
	}
	slog.Info("rewrites extracted", "extracted", extracted, "skipped", skipped)
	return nil
}
