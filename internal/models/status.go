package models

import "strings"

// StatusActive is the registry status of an entity in good standing.
const StatusActive = "active"

// IsActiveStatus compares a free-text registry status against "active",
// ignoring case and surrounding whitespace.
func IsActiveStatus(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), StatusActive)
}
