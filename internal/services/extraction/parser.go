package extraction

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

var (
	jsonFenceOpen  = regexp.MustCompile("```json\\s*\\n?")
	jsonFenceClose = regexp.MustCompile("```\\s*\\n?")
)

// parseRecord turns a raw completion into the validated record for the
// document type and returns its JSON object form. Responses wrapped in
// markdown fences or prose are salvaged by extracting the first balanced
// JSON object; a response wrapped in a single envelope key is unwrapped.
// Nulls for fields that declare a default are dropped so decoding keeps
// the default.
func parseRecord(content string, docConfig *models.DocumentTypeConfig) (map[string]interface{}, error) {
	var data interface{}
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		salvaged, found := extractJSONObject(content)
		if !found {
			return nil, models.NewParseError("Response is not valid JSON", err)
		}
		if err := json.Unmarshal([]byte(salvaged), &data); err != nil {
			return nil, models.NewParseError("Response is not valid JSON", err)
		}
	}

	if m, ok := data.(map[string]interface{}); ok && len(m) == 1 {
		for _, v := range m {
			data = v
		}
	}

	report, ok := data.(map[string]interface{})
	if !ok {
		return nil, models.NewParseError("Response is not a JSON object", nil)
	}

	cleaned := make(map[string]interface{}, len(report))
	for key, value := range report {
		if value == nil {
			if f := docConfig.Schema.Field(key); f != nil && (f.Required || f.Default != nil) {
				continue
			}
		}
		cleaned[key] = value
	}

	record := docConfig.NewRecord()
	if err := decodeStrict(cleaned, record); err != nil {
		return nil, models.NewParseError("Response does not match the schema", err)
	}
	if v, ok := record.(models.Validatable); ok {
		if err := v.Validate(); err != nil {
			return nil, models.NewParseError("Extracted record failed validation", err)
		}
	}

	return recordToMap(record)
}

// extractJSONObject strips markdown fences and returns the first
// brace-balanced object in content. Depth counts raw braces, so a brace
// inside a string value ends the scan early and the caller's decode
// rejects the fragment.
func extractJSONObject(content string) (string, bool) {
	cleaned := jsonFenceOpen.ReplaceAllString(content, "")
	cleaned = jsonFenceClose.ReplaceAllString(cleaned, "")

	start := strings.Index(cleaned, "{")
	if start < 0 {
		return "", false
	}
	depth := 0
	for i := start; i < len(cleaned); i++ {
		switch cleaned[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return cleaned[start : i+1], true
			}
		}
	}
	return "", false
}

// decodeStrict decodes data into record, rejecting keys the record does
// not declare.
func decodeStrict(data map[string]interface{}, record interface{}) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(record)
}

func recordToMap(record interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, models.NewParseError("Extracted record failed to encode", err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, models.NewParseError("Extracted record failed to encode", err)
	}
	return out, nil
}
