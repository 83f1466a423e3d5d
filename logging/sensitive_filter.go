package logging

import (
	"regexp"
	"strings"
)

// RedactedPlaceholder is the string used to replace sensitive data
const RedactedPlaceholder = "[REDACTED]"

// sensitivePatterns detect credentials embedded in free-form values.
// Generation URLs carry the API key as a `key` query parameter, so that form comes first.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)([?&]key=)[^&\s"']+`),
	regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9._~+/=-]{8,}`),
	regexp.MustCompile(`AIza[a-zA-Z0-9_-]{35}`),
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)((?:api_?key|token|secret|password)\s*[:=]\s*)[^\s,;&]{6,}`),
}

// sensitiveFieldNames are field name fragments whose values are always redacted.
var sensitiveFieldNames = []string{
	"API_KEY",
	"APIKEY",
	"AUTHORIZATION",
	"PASSWORD",
	"SECRET",
	"TOKEN",
}

// RedactSensitiveData scans a string value and redacts any detected credentials.
// Prefixes such as `key=` or `Bearer ` are kept so the log stays readable.
// This is a pure function with no side effects.
//
// Example:
//
//	RedactSensitiveData("POST https://api.example.com/v1beta/models/m:generateContent?key=abc123")
//	// "POST https://api.example.com/v1beta/models/m:generateContent?key=[REDACTED]"
func RedactSensitiveData(value string) string {
	if value == "" {
		return value
	}

	result := value
	for _, pattern := range sensitivePatterns {
		if pattern.NumSubexp() > 0 {
			result = pattern.ReplaceAllString(result, "${1}"+RedactedPlaceholder)
		} else {
			result = pattern.ReplaceAllString(result, RedactedPlaceholder)
		}
	}
	return result
}

// IsSensitiveField returns true if the field name indicates sensitive data.
//
// Example:
//
//	IsSensitiveField("api_key")   // true
//	IsSensitiveField("prompt")    // false
func IsSensitiveField(fieldName string) bool {
	upperName := strings.ToUpper(fieldName)
	for _, fragment := range sensitiveFieldNames {
		if strings.Contains(upperName, fragment) {
			return true
		}
	}
	return false
}

// MaskKey shortens an API key for display, keeping the first and last two characters.
func MaskKey(key string) string {
	if len(key) <= 6 {
		return strings.Repeat("*", len(key))
	}
	return key[:2] + strings.Repeat("*", len(key)-4) + key[len(key)-2:]
}
