package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	FriendCodeLength   = 8
	FriendCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	FriendCodeTTL      = 15 * time.Minute
)

// FriendSummary is the public view of a friend (or of the account that owned a redeemed code).
type FriendSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	Since       time.Time `json:"since,omitempty"`
}

// FriendCode is an issued code as shown to its owner.
type FriendCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsValidFriendCode reports whether s has the shape of an issued code.
// It does not check expiry or ownership.
func IsValidFriendCode(s string) bool {
	if len(s) != FriendCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
