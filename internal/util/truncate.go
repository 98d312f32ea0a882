package util

import (
	"encoding/json"
	"fmt"
)

// DefaultLogMaxLen bounds query strings and mutation payloads written to the log.
const DefaultLogMaxLen = 1024

// TruncateLog truncates long strings for logging.
func TruncateLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + fmt.Sprintf("... [truncated, %d bytes total]", len(s))
}

// TruncateJSON marshals v and truncates the result to DefaultLogMaxLen.
func TruncateJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<unmarshalable %T>", v)
	}
	return TruncateLog(string(b), DefaultLogMaxLen)
}

// MaskSecret keeps the first and last four characters of a credential.
func MaskSecret(s string) string {
	if len(s) <= 8 {
		return "****"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
