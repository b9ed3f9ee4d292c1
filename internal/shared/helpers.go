// Package shared provides common utility functions used across multiple
// packages in the taskforge codebase.
package shared

import (
	"fmt"
	"strings"
)

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// JoinNonEmpty joins the non-empty values with the separator.
func JoinNonEmpty(separator string, values ...string) string {
	var kept []string
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			kept = append(kept, value)
		}
	}
	return strings.Join(kept, separator)
}
