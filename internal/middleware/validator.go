package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var ownerPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ValidateOwner validates the owner path segment
func ValidateOwner(owner string) error {
	if owner == "" {
		return fmt.Errorf("owner cannot be empty")
	}
	if !ownerPattern.MatchString(owner) {
		return fmt.Errorf("invalid owner format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateSessionID validates session IDs, which are always UUIDs.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("invalid session ID format")
	}
	return nil
}

// ValidateRecordID validates result and tracker entry IDs. Imported records
// may carry numeric IDs, so anything in the owner alphabet is accepted.
func ValidateRecordID(id string) error {
	if !ownerPattern.MatchString(id) {
		return fmt.Errorf("invalid id format")
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates the trend window
func ValidateDays(days int) int {
	if days <= 0 {
		return 30 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
