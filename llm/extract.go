package llm

import (
	"encoding/json"
	"regexp"
	"strings"
)

// Leading filler phrases stripped from extracted text. Deliberately a
// closed set: broader preamble stripping risks destroying legitimate
// content, so unmatched prefixes pass through verbatim.
var fillerPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(?:here is|here['\x{2019}]s a|the) rewritten (?:version|message):\s*`),
	regexp.MustCompile(`(?i)^rewritten message:\s*`),
}

// quotePairs are the wrapping pairs stripped when one encloses the
// entire trimmed text. Exactly one pair is removed; inner quotes are
// preserved.
var quotePairs = [][2]string{
	{`"`, `"`},
	{"“", "”"},
	{"'", "'"},
	{"‘", "’"},
}

// Response shapes tried in priority order. Each decode attempt is
// independent and non-throwing; on failure the next shape is tried.

type structuredShape struct {
	RewrittenText string `json:"rewritten_text"`
}

type outputTextShape struct {
	OutputText string `json:"output_text"`
}

type outputListShape struct {
	Output []outputBlock `json:"output"`
}

type outputBlock struct {
	Content []contentItem `json:"content"`
}

// contentItem tolerates the three places providers put text inside a
// content block: a string "text" field, an object {"text":{"value":…}},
// or a string "content" field.
type contentItem struct {
	Text    json.RawMessage `json:"text"`
	Content json.RawMessage `json:"content"`
}

type chatShape struct {
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Text string `json:"text"`
}

// ExtractRewrittenText recovers the rewritten message from a provider
// response body. It returns "" when no usable text is found; that is a
// valid negative result for the caller to check, not an error. The
// layered fallbacks maximize the chance of recovering text from
// imperfect provider output without ever fabricating content.
func ExtractRewrittenText(body []byte) string {
	if text := rewrittenField(body); text != "" {
		return cleanupText(text)
	}

	raw := freeText(body)
	if strings.TrimSpace(raw) == "" {
		return ""
	}
	// Some providers embed the structured answer inside a text field.
	if text := rewrittenField([]byte(raw)); text != "" {
		return cleanupText(text)
	}
	return cleanupText(raw)
}

// rewrittenField returns the rewritten_text string when data is a JSON
// object carrying one with non-whitespace content.
func rewrittenField(data []byte) string {
	var shape structuredShape
	if err := json.Unmarshal(data, &shape); err != nil {
		return ""
	}
	if strings.TrimSpace(shape.RewrittenText) == "" {
		return ""
	}
	return shape.RewrittenText
}

// freeText attempts the free-text response shapes in priority order.
func freeText(body []byte) string {
	var direct outputTextShape
	if err := json.Unmarshal(body, &direct); err == nil && strings.TrimSpace(direct.OutputText) != "" {
		return direct.OutputText
	}

	var list outputListShape
	if err := json.Unmarshal(body, &list); err == nil {
		for _, block := range list.Output {
			if joined := joinContent(block.Content); strings.TrimSpace(joined) != "" {
				return joined
			}
		}
	}

	var chat chatShape
	if err := json.Unmarshal(body, &chat); err == nil && len(chat.Choices) > 0 {
		first := chat.Choices[0]
		if strings.TrimSpace(first.Message.Content) != "" {
			return first.Message.Content
		}
		if strings.TrimSpace(first.Text) != "" {
			return first.Text
		}
	}
	return ""
}

// joinContent concatenates the string parts of one content block.
func joinContent(items []contentItem) string {
	var sb strings.Builder
	for _, item := range items {
		if s, ok := rawString(item.Text); ok && s != "" {
			sb.WriteString(s)
			continue
		}
		var nested struct {
			Value string `json:"value"`
		}
		if len(item.Text) > 0 && json.Unmarshal(item.Text, &nested) == nil && nested.Value != "" {
			sb.WriteString(nested.Value)
			continue
		}
		if s, ok := rawString(item.Content); ok && s != "" {
			sb.WriteString(s)
		}
	}
	return sb.String()
}

// rawString decodes raw as a JSON string, reporting whether it was one.
func rawString(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// cleanupText normalizes whatever text was found: trim, strip known
// leading filler, strip one wrapping quote pair, trim again.
func cleanupText(s string) string {
	s = strings.TrimSpace(s)
	for _, pattern := range fillerPatterns {
		if loc := pattern.FindStringIndex(s); loc != nil {
			s = strings.TrimSpace(s[loc[1]:])
			break
		}
	}
	for _, pair := range quotePairs {
		opening, closing := pair[0], pair[1]
		if len(s) >= len(opening)+len(closing) && strings.HasPrefix(s, opening) && strings.HasSuffix(s, closing) {
			s = strings.TrimSpace(s[len(opening) : len(s)-len(closing)])
			break
		}
	}
	return s
}
