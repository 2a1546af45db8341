package models

import (
	"time"

	"github.com/google/uuid"
)

// Artifact is a stored piece of artwork. Only PurchaseHistory changes after creation.
type Artifact struct {
	ID              uuid.UUID  `json:"id"`
	URL             string     `json:"url"`
	OwnerID         uuid.UUID  `json:"owner_id"`
	CreatedAt       time.Time  `json:"created_at"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	PurchaseHistory []Purchase `json:"purchase_history"`
}

type Purchase struct {
	BuyerID     uuid.UUID `json:"buyer_id"`
	AmountCents int64     `json:"amount_cents"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReceivedArtifact is an artifact a friend shared that the recipient has not bought yet.
type ReceivedArtifact struct {
	Artifact
	FromAccountID uuid.UUID `json:"from_account_id"`
	ReceivedAt    time.Time `json:"received_at"`
}

type CreateArtifactParams struct {
	URL    string
	Width  int
	Height int
}
