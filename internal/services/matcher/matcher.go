package matcher

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/ternarybob/scriba/internal/models"
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// NormalizeText lowercases and collapses whitespace for matching.
func NormalizeText(text string) string {
	if text == "" {
		return ""
	}
	return whitespacePattern.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

// formatValue renders a report value the way it would appear in text.
// Integral floats keep one decimal ("121.0") so they line up with
// decimal-bearing OCR amounts.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		if v == math.Trunc(v) && math.Abs(v) < 1e15 {
			return strconv.FormatFloat(v, 'f', 1, 64)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return ""
	}
}

// MapFields assigns OCR items to extracted field names by text matching.
// An item matches a field when either normalized string contains the
// other. Fields are tried in schema order, each field is assigned at most
// once, and an item takes the first unused field that matches.
func MapFields(schema *models.ObjectSchema, report map[string]interface{}, items []models.OcrItem) map[int]string {
	mapping := make(map[int]string)
	if schema == nil || len(report) == 0 {
		return mapping
	}

	// Normalize scalar field values; nested lists and objects are matched
	// through their own fields, not as a whole
	type fieldValue struct {
		name  string
		value string
	}
	var fields []fieldValue
	for i := range schema.Fields {
		name := schema.Fields[i].Name
		raw, ok := report[name]
		if !ok || raw == nil {
			continue
		}
		switch raw.(type) {
		case []interface{}, map[string]interface{}:
			continue
		}
		normalized := NormalizeText(formatValue(raw))
		if normalized == "" {
			continue
		}
		fields = append(fields, fieldValue{name: name, value: normalized})
	}

	used := make(map[string]bool, len(fields))

	for idx, item := range items {
		ocrText := strings.TrimSpace(item.Text)
		if ocrText == "" {
			continue
		}
		normalizedOCR := NormalizeText(ocrText)

		for _, f := range fields {
			if strings.Contains(normalizedOCR, f.value) || strings.Contains(f.value, normalizedOCR) {
				if !used[f.name] {
					mapping[idx] = f.name
					used[f.name] = true
					break
				}
			}
		}
	}

	return mapping
}
