package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/models"
)

// AccountServiceInterface defines the contract for account operations.
type AccountServiceInterface interface {
	Create(ctx context.Context, params models.CreateAccountParams) (*models.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// FriendCodeServiceInterface defines the contract for friend code and friend list operations.
type FriendCodeServiceInterface interface {
	GenerateCode(ctx context.Context, accountID uuid.UUID) (*models.FriendCode, error)
	GetCodeStatus(ctx context.Context, accountID uuid.UUID) (*CodeStatus, error)
	RedeemCode(ctx context.Context, callerID uuid.UUID, code string) (*models.FriendSummary, error)
	ListFriends(ctx context.Context, accountID uuid.UUID) ([]models.FriendSummary, error)
	RemoveFriend(ctx context.Context, accountID, friendID uuid.UUID) error
}

// FridgeServiceInterface defines the contract for fridge placement operations.
type FridgeServiceInterface interface {
	PlaceArtifact(ctx context.Context, accountID, artifactID uuid.UUID, slot int) (*models.Fridge, error)
	GetFridge(ctx context.Context, accountID uuid.UUID) (*models.Fridge, error)
	RemoveArtifact(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Fridge, error)
}

// ArtifactServiceInterface defines the contract for artifact operations.
type ArtifactServiceInterface interface {
	Create(ctx context.Context, ownerID uuid.UUID, params models.CreateArtifactParams) (*models.Artifact, error)
	GetForAccount(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Artifact, error)
	ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Artifact, error)
	Share(ctx context.Context, senderID, recipientID, artifactID uuid.UUID) error
	ListReceived(ctx context.Context, accountID uuid.UUID) ([]models.ReceivedArtifact, error)
	Purchase(ctx context.Context, buyerID, artifactID uuid.UUID, amountCents int64) (*models.Purchase, error)
}

// SessionServiceInterface resolves a session token to an account id.
type SessionServiceInterface interface {
	ValidateSession(ctx context.Context, token string) (uuid.UUID, error)
}

// CodeSweeper clears lapsed friend codes.
type CodeSweeper interface {
	ClearExpiredCodes(ctx context.Context) (int64, error)
}

var (
	_ AccountServiceInterface    = (*AccountService)(nil)
	_ FriendCodeServiceInterface = (*FriendCodeService)(nil)
	_ FridgeServiceInterface     = (*FridgeService)(nil)
	_ ArtifactServiceInterface   = (*ArtifactService)(nil)
	_ SessionServiceInterface    = (*SessionService)(nil)
	_ CodeSweeper                = (*FriendCodeService)(nil)
)
