package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrFatalAPI marks API errors that won't succeed on retry: authentication,
// billing and quota problems. The retry helper gives up immediately when an
// error matches this sentinel.
var ErrFatalAPI = errors.New("fatal API error")

// fatalPatterns are substrings of provider error messages that indicate a
// non-retryable condition.
var fatalPatterns = []string{
	"credit balance",
	"quota",
	"billing",
	"invalid api key",
	"authentication",
	"unauthorized",
	"401",
	"403",
}

// isFatalAPIError reports whether err indicates a condition retries can't fix.
func isFatalAPIError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range fatalPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// wrapFatalError wraps fatal API errors with ErrFatalAPI so callers can check
// with errors.Is. Non-fatal errors pass through unchanged.
func wrapFatalError(err error) error {
	if err == nil {
		return nil
	}
	if isFatalAPIError(err) {
		return fmt.Errorf("%w: %v", ErrFatalAPI, err)
	}
	return err
}
