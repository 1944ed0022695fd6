// Package main implements a mock batch provider for offline testing.
// It consumes a provider batch input file (as produced by softsend
// batch) and writes the matching batch results file, with a canned
// rewrite per request, so the batch, extract, and eval commands can be
// wired together end to end without a provider account.
//
// Usage:
//
//	mock-provider -input batch.jsonl -output results.jsonl -shape structured
//
// Shapes select the response body layout so every provider format the
// extractor understands can be exercised: structured (json_schema
// object), output_text, output_list, chat, filler (output_text with a
// leading filler phrase), error (failure envelopes for every request).
//
// With -fail-every N, every Nth request becomes a failure envelope
// regardless of shape, for testing partial-batch handling.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
)

// --- Batch file types ---

type batchRecord struct {
	CustomID string `json:"custom_id"`
	Body     struct {
		Input []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"input"`
	} `json:"body"`
}

type userPayload struct {
	TargetLanguage  string `json:"target_language"`
	Intent          string `json:"intent"`
	OriginalMessage string `json:"original_message"`
}

type resultEnvelope struct {
	ID       string          `json:"id"`
	CustomID string          `json:"custom_id"`
	Response *resultResponse `json:"response,omitempty"`
	Error    *resultError    `json:"error,omitempty"`
}

type resultResponse struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body"`
}

type resultError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func main() {
	inputPath := flag.String("input", "-", "batch input JSONL (- for stdin)")
	outputPath := flag.String("output", "-", "batch results JSONL (- for stdout)")
	shape := flag.String("shape", "structured", "response body shape: structured, output_text, output_list, chat, filler, error")
	failEvery := flag.Int("fail-every", 0, "turn every Nth request into a failure envelope (0 = never)")
	flag.Parse()

	// Allow env var override
	if envShape := os.Getenv("MOCK_PROVIDER_SHAPE"); envShape != "" && *shape == "structured" {
		*shape = envShape
	}

	in := os.Stdin
	if *inputPath != "" && *inputPath != "-" {
		f, err := os.Open(*inputPath)
		if err != nil {
			log.Fatalf("Failed to open input %s: %v", *inputPath, err)
		}
		defer f.Close()
		in = f
	}

	out := os.Stdout
	if *outputPath != "" && *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			log.Fatalf("Failed to create output %s: %v", *outputPath, err)
		}
		defer f.Close()
		out = f
	}

	served, failed, err := serve(in, out, *shape, *failEvery)
	if err != nil {
		log.Fatalf("Mock provider failed: %v", err)
	}
	log.Printf("Served %d request(s) (%d failed) with shape=%s", served, failed, *shape)
}

// serve replays every batch record as a result envelope.
func serve(in io.Reader, out io.Writer, shape string, failEvery int) (served, failed int, err error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	enc := json.NewEncoder(out)

	n := 0
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		n++

		var rec batchRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return served, failed, fmt.Errorf("parse batch line %d: %w", n, err)
		}
		if rec.CustomID == "" {
			return served, failed, fmt.Errorf("batch line %d has no custom_id", n)
		}

		envelope := resultEnvelope{
			ID:       fmt.Sprintf("mock-%d", n),
			CustomID: rec.CustomID,
		}

		if shape == "error" || (failEvery > 0 && n%failEvery == 0) {
			envelope.Error = &resultError{Code: "server_error", Message: "mock provider failure"}
			failed++
		} else {
			body, err := buildBody(shape, rewriteFor(rec))
			if err != nil {
				return served, failed, fmt.Errorf("build body for %s: %w", rec.CustomID, err)
			}
			envelope.Response = &resultResponse{StatusCode: 200, Body: body}
		}

		if err := enc.Encode(envelope); err != nil {
			return served, failed, fmt.Errorf("write envelope for %s: %w", rec.CustomID, err)
		}
		served++
		log.Printf("[request %d] custom_id=%s shape=%s", n, rec.CustomID, shape)
	}
	if err := scanner.Err(); err != nil {
		return served, failed, fmt.Errorf("read batch input: %w", err)
	}
	if served == 0 {
		return served, failed, fmt.Errorf("no batch records found")
	}
	return served, failed, nil
}

// rewriteFor picks a canned, lexicon-clean rewrite from the request's
// declared intent. The user payload rides inside the first input
// message as a JSON string.
func rewriteFor(rec batchRecord) string {
	var payload userPayload
	if len(rec.Body.Input) > 0 {
		_ = json.Unmarshal([]byte(rec.Body.Input[0].Content), &payload)
	}

	switch payload.Intent {
	case "boundary":
		return "Please check with me before borrowing my things."
	case "concern":
		return "I wanted to flag something that has been on my mind."
	case "clarification":
		return "Can you help me understand what happened here?"
	default:
		return "Could you please take care of this soon? Thanks!"
	}
}

// buildBody renders the canned rewrite in the requested response shape.
func buildBody(shape, text string) (json.RawMessage, error) {
	var body any
	switch shape {
	case "structured":
		body = map[string]string{"rewritten_text": text}
	case "output_text":
		body = map[string]string{"output_text": text}
	case "output_list":
		body = map[string]any{
			"output": []any{
				map[string]any{
					"content": []any{
						map[string]any{"type": "output_text", "text": text},
					},
				},
			},
		}
	case "chat":
		body = map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]string{"role": "assistant", "content": text},
				},
			},
		}
	case "filler":
		body = map[string]string{"output_text": "Rewritten message: " + text}
	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return data, nil
}
