package utils

import "github.com/google/uuid"

// GenerateID returns a new random identifier.
func GenerateID() string {
	return uuid.NewString()
}
