package models

// DocumentTypeConfig binds a registered document type to its extraction
// schema, prompts, and post-extraction behaviors.
type DocumentTypeConfig struct {
	// DocType is the registry key, e.g. "deliverynote"
	DocType string

	// Schema declares the record fields for schema-constrained output
	Schema *ObjectSchema

	// Prompts
	SystemPrompt string
	// UserTemplate is the user message carrying a {text} placeholder for
	// the document text
	UserTemplate string

	// TextLimit caps the characters of document text sent to the model.
	// Zero means no cap.
	TextLimit int

	// NewRecord returns a zero record with defaults applied; the parsed
	// response is decoded into it and validated
	NewRecord func() interface{}

	// BuildLegend renders an extracted report as the legend lines shown
	// on the annotation panel
	BuildLegend func(report map[string]interface{}) []string

	// Redact masks sensitive values in legend lines before rendering.
	// Nil when the document type carries nothing worth masking.
	Redact func(lines []string) []string
}

// ApplyTextLimit truncates text to the configured cap, counting runes so
// accented characters never get split mid-sequence.
func (c *DocumentTypeConfig) ApplyTextLimit(text string) string {
	if c.TextLimit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= c.TextLimit {
		return text
	}
	return string(runes[:c.TextLimit])
}
