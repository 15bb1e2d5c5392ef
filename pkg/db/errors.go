package db

import (
	"context"
	"errors"
	"strings"
)

// IsUnavailable reports whether err looks like the store being unreachable
// rather than a bad query: closed pools, refused connections and timeouts.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"connection refused", "database is closed", "sql: database is closed", "no such host", "broken pipe"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
