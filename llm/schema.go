package llm

// rewriteOutputSchemaName is the identifier the provider echoes back
// for the structured-output contract. Bump the suffix when the schema
// shape changes.
const rewriteOutputSchemaName = "complaint_rewrite_output_v1"

// rewriteOutputSchema constrains structured generation to exactly one
// field: the rewritten message text. additionalProperties stays false
// so the provider cannot smuggle extra content past the extractor.
const rewriteOutputSchema = `{
  "type": "object",
  "properties": {
    "rewritten_text": {
      "type": "string",
      "minLength": 1,
      "maxLength": 4000
    }
  },
  "required": ["rewritten_text"],
  "additionalProperties": false
}`
