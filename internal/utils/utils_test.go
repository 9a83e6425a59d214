package utils

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
)

func TestTailBuffer(t *testing.T) {
	tb := NewTailBuffer(8)

	tb.Write([]byte("abcd"))
	tb.Write([]byte("efgh"))
	if got := tb.String(); got != "abcdefgh" {
		t.Errorf("Expected full buffer, got %q", got)
	}

	// Overflow keeps only the tail
	tb.Write([]byte("ij"))
	if got := tb.String(); got != "cdefghij" {
		t.Errorf("Expected tail 'cdefghij', got %q", got)
	}

	// A single write larger than the cap
	tb.Write([]byte("0123456789XYZ"))
	if got := tb.String(); got != "56789XYZ" {
		t.Errorf("Expected tail '56789XYZ', got %q", got)
	}
	if tb.Len() != 8 {
		t.Errorf("Expected length 8, got %d", tb.Len())
	}
}

func TestShowError(t *testing.T) {
	var out bytes.Buffer
	prev := errOut
	errOut = &out
	defer func() { errOut = prev }()

	s := NewSafeCommand(context.Background(), "python3")
	s.Stderr.Write([]byte("ModuleNotFoundError: No module named 'deepface'"))

	ShowError("Failed to start AI worker", errors.New("broken pipe"), s)

	got := out.String()
	for _, want := range []string{
		"MOODGATE ERROR: Failed to start AI worker",
		"DETAILS: broken pipe",
		"PYTHON CRASH LOGS:",
		"No module named 'deepface'",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, got)
		}
	}
}

func TestShowError_NoCommand(t *testing.T) {
	var out bytes.Buffer
	prev := errOut
	errOut = &out
	defer func() { errOut = prev }()

	ShowError("Cannot access webcam.", nil, nil)

	got := out.String()
	if !strings.Contains(got, "Cannot access webcam.") {
		t.Errorf("Missing context line:\n%s", got)
	}
	if strings.Contains(got, "DETAILS") || strings.Contains(got, "PYTHON CRASH LOGS") {
		t.Errorf("Unexpected sections for a nil error and nil command:\n%s", got)
	}
}
