package util

import (
	"strings"
	"testing"
)

func TestTruncateLog_ShortString(t *testing.T) {
	input := "SELECT campaign.id FROM campaign"
	result := TruncateLog(input, DefaultLogMaxLen)
	if result != input {
		t.Errorf("TruncateLog() should not truncate short strings, got %q", result)
	}
}

func TestTruncateLog_ExactLimit(t *testing.T) {
	input := "12345678901234567890" // 20 chars
	result := TruncateLog(input, 20)
	if result != input {
		t.Errorf("TruncateLog() should not truncate at exact limit, got %q", result)
	}
}

func TestTruncateLog_LongString(t *testing.T) {
	input := "1234567890abcdefghij" // 20 chars
	result := TruncateLog(input, 10)
	if result != "1234567890... [truncated, 20 bytes total]" {
		t.Errorf("TruncateLog() = %q, want \"1234567890... [truncated, 20 bytes total]\"", result)
	}
}

func TestTruncateJSON(t *testing.T) {
	small := TruncateJSON(map[string]string{"entity": "campaign"})
	if small != `{"entity":"campaign"}` {
		t.Errorf("TruncateJSON() = %q", small)
	}

	big := TruncateJSON(strings.Repeat("x", 2*DefaultLogMaxLen))
	if !strings.Contains(big, "[truncated,") {
		t.Errorf("TruncateJSON() should truncate large payloads, got len=%d", len(big))
	}

	if got := TruncateJSON(make(chan int)); !strings.HasPrefix(got, "<unmarshalable") {
		t.Errorf("TruncateJSON(chan) = %q", got)
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret("1//0abcdefghijklmnop"); got != "1//0...mnop" {
		t.Errorf("MaskSecret() = %q", got)
	}
	if got := MaskSecret("short"); got != "****" {
		t.Errorf("MaskSecret(short) = %q", got)
	}
}
