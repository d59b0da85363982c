// Package retry wraps upstream calls with bounded, backed-off retries and
// classifies failures as retriable or terminal by matching substrings in
// the lowercased error message.
package retry

import "strings"

var nonRetriableSubstrings = []string{
	"invalid",
	"not found",
	"unauthorized",
	"forbidden",
	"bad request",
	"validation",
	"parse error",
	"process exited",
}

var retriableSubstrings = []string{
	"timeout",
	"econnrefused",
	"econnreset",
	"etimedout",
	"network",
	"temporary",
}

// Classify reports whether err should be retried. Errors matching neither
// list default to retriable, since transient upstream trouble is the
// common case; non-retriable substrings are checked first so an error
// mentioning both (unlikely in practice) fails closed.
func Classify(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range nonRetriableSubstrings {
		if strings.Contains(msg, s) {
			return false
		}
	}
	for _, s := range retriableSubstrings {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return true
}
