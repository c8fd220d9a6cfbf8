package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/constants"
)

// GenerateInviteToken returns a hex encoded random token of constants.InviteTokenBytes bytes.
func GenerateInviteToken() (string, error) {
	bytes := make([]byte, constants.InviteTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(bytes), nil
}
