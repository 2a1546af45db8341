package models

import (
	"time"

	"github.com/google/uuid"
)

type Account struct {
	ID                  uuid.UUID    `json:"id"`
	DisplayName         string       `json:"display_name"`
	Friends             []uuid.UUID  `json:"friends"`
	FriendCode          *string      `json:"friend_code,omitempty"`
	FriendCodeExpiresAt *time.Time   `json:"friend_code_expires_at,omitempty"`
	Fridge              []FridgeSlot `json:"fridge"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// HasFriend reports whether id is in the account's friend set.
func (a *Account) HasFriend(id uuid.UUID) bool {
	for _, f := range a.Friends {
		if f == id {
			return true
		}
	}
	return false
}

type CreateAccountParams struct {
	ID          uuid.UUID
	DisplayName string
}
