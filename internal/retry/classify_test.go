package retry

import (
	"errors"
	"testing"
)

func TestClassifyNonRetriableSubstrings(t *testing.T) {
	cases := []string{
		"Invalid request",
		"tool not found",
		"Unauthorized",
		"403 Forbidden",
		"400 Bad Request",
		"validation failed",
		"parse error: unexpected token",
	}
	for _, msg := range cases {
		if Classify(errors.New(msg)) {
			t.Errorf("Classify(%q) = true, want false (non-retriable)", msg)
		}
	}
}

func TestClassifyRetriableSubstrings(t *testing.T) {
	cases := []string{
		"request timeout",
		"connect: ECONNREFUSED",
		"read: ECONNRESET",
		"ETIMEDOUT",
		"network unreachable",
		"temporary failure in name resolution",
	}
	for _, msg := range cases {
		if !Classify(errors.New(msg)) {
			t.Errorf("Classify(%q) = false, want true (retriable)", msg)
		}
	}
}

func TestClassifyUnmatchedDefaultsRetriable(t *testing.T) {
	if !Classify(errors.New("something unexpected happened")) {
		t.Fatal("Classify() = false, want true for unmatched error")
	}
}

func TestClassifyNilError(t *testing.T) {
	if Classify(nil) {
		t.Fatal("Classify(nil) = true, want false")
	}
}
