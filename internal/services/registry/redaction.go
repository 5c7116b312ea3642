package registry

import (
	"regexp"
	"strings"
)

// Patterns for sensitive values that must not appear in annotated output.
var (
	emailPattern = regexp.MustCompile(`\b[\w.-]+@[\w.-]+\.\w{2,}\b`)
	// IBAN: 2 letters + 2 digits + 11-30 alphanumeric
	ibanPattern = regexp.MustCompile(`(?i)\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)
	// Spanish tax IDs (NIF/CIF): 8 digits + letter, or letter + 8 digits
	taxIDPattern = regexp.MustCompile(`(?i)\b(\d{8}[A-Z]|[A-Z]\d{8})\b`)
	dniPattern   = regexp.MustCompile(`(?i)\b\d{8}[A-Z]\b`)
	niePattern   = regexp.MustCompile(`(?i)\b[A-Z]\d{7}[A-Z]\b`)
)

// RedactSensitiveInfo replaces emails, IBANs, and Spanish tax IDs with
// redaction markers.
func RedactSensitiveInfo(text string) string {
	text = emailPattern.ReplaceAllString(text, "••REDACTED-EMAIL••")
	text = ibanPattern.ReplaceAllString(text, "••REDACTED-IBAN••")
	return taxIDPattern.ReplaceAllString(text, "••REDACTED-TAXID••")
}

// DefaultRedact applies RedactSensitiveInfo across legend lines.
func DefaultRedact(lines []string) []string {
	text := strings.Join(lines, "\n")
	text = RedactSensitiveInfo(text)
	return strings.Split(text, "\n")
}

// RedactPayroll additionally masks DNI and NIE identifiers that payroll
// legends carry.
func RedactPayroll(lines []string) []string {
	text := strings.Join(lines, "\n")
	text = RedactSensitiveInfo(text)
	text = dniPattern.ReplaceAllString(text, "••REDACTED-DNI••")
	text = niePattern.ReplaceAllString(text, "••REDACTED-NIE••")
	return strings.Split(text, "\n")
}
