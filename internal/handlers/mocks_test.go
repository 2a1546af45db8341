package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/models"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

type mockAccountService struct {
	CreateFunc  func(ctx context.Context, params models.CreateAccountParams) (*models.Account, error)
	GetByIDFunc func(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

func (m *mockAccountService) Create(ctx context.Context, params models.CreateAccountParams) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockAccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

type mockFriendCodeService struct {
	GenerateCodeFunc  func(ctx context.Context, accountID uuid.UUID) (*models.FriendCode, error)
	GetCodeStatusFunc func(ctx context.Context, accountID uuid.UUID) (*services.CodeStatus, error)
	RedeemCodeFunc    func(ctx context.Context, callerID uuid.UUID, code string) (*models.FriendSummary, error)
	ListFriendsFunc   func(ctx context.Context, accountID uuid.UUID) ([]models.FriendSummary, error)
	RemoveFriendFunc  func(ctx context.Context, accountID, friendID uuid.UUID) error
}

func (m *mockFriendCodeService) GenerateCode(ctx context.Context, accountID uuid.UUID) (*models.FriendCode, error) {
	if m.GenerateCodeFunc != nil {
		return m.GenerateCodeFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockFriendCodeService) GetCodeStatus(ctx context.Context, accountID uuid.UUID) (*services.CodeStatus, error) {
	if m.GetCodeStatusFunc != nil {
		return m.GetCodeStatusFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockFriendCodeService) RedeemCode(ctx context.Context, callerID uuid.UUID, code string) (*models.FriendSummary, error) {
	if m.RedeemCodeFunc != nil {
		return m.RedeemCodeFunc(ctx, callerID, code)
	}
	return nil, nil
}

func (m *mockFriendCodeService) ListFriends(ctx context.Context, accountID uuid.UUID) ([]models.FriendSummary, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockFriendCodeService) RemoveFriend(ctx context.Context, accountID, friendID uuid.UUID) error {
	if m.RemoveFriendFunc != nil {
		return m.RemoveFriendFunc(ctx, accountID, friendID)
	}
	return nil
}

type mockFridgeService struct {
	PlaceArtifactFunc  func(ctx context.Context, accountID, artifactID uuid.UUID, slot int) (*models.Fridge, error)
	GetFridgeFunc      func(ctx context.Context, accountID uuid.UUID) (*models.Fridge, error)
	RemoveArtifactFunc func(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Fridge, error)
}

func (m *mockFridgeService) PlaceArtifact(ctx context.Context, accountID, artifactID uuid.UUID, slot int) (*models.Fridge, error) {
	if m.PlaceArtifactFunc != nil {
		return m.PlaceArtifactFunc(ctx, accountID, artifactID, slot)
	}
	return nil, nil
}

func (m *mockFridgeService) GetFridge(ctx context.Context, accountID uuid.UUID) (*models.Fridge, error) {
	if m.GetFridgeFunc != nil {
		return m.GetFridgeFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockFridgeService) RemoveArtifact(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Fridge, error) {
	if m.RemoveArtifactFunc != nil {
		return m.RemoveArtifactFunc(ctx, accountID, artifactID)
	}
	return nil, nil
}

type mockArtifactService struct {
	CreateFunc         func(ctx context.Context, ownerID uuid.UUID, params models.CreateArtifactParams) (*models.Artifact, error)
	GetForAccountFunc  func(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Artifact, error)
	ListForAccountFunc func(ctx context.Context, accountID uuid.UUID) ([]models.Artifact, error)
	ShareFunc          func(ctx context.Context, senderID, recipientID, artifactID uuid.UUID) error
	ListReceivedFunc   func(ctx context.Context, accountID uuid.UUID) ([]models.ReceivedArtifact, error)
	PurchaseFunc       func(ctx context.Context, buyerID, artifactID uuid.UUID, amountCents int64) (*models.Purchase, error)
}

func (m *mockArtifactService) Create(ctx context.Context, ownerID uuid.UUID, params models.CreateArtifactParams) (*models.Artifact, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, ownerID, params)
	}
	return nil, nil
}

func (m *mockArtifactService) GetForAccount(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Artifact, error) {
	if m.GetForAccountFunc != nil {
		return m.GetForAccountFunc(ctx, accountID, artifactID)
	}
	return nil, nil
}

func (m *mockArtifactService) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Artifact, error) {
	if m.ListForAccountFunc != nil {
		return m.ListForAccountFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockArtifactService) Share(ctx context.Context, senderID, recipientID, artifactID uuid.UUID) error {
	if m.ShareFunc != nil {
		return m.ShareFunc(ctx, senderID, recipientID, artifactID)
	}
	return nil
}

func (m *mockArtifactService) ListReceived(ctx context.Context, accountID uuid.UUID) ([]models.ReceivedArtifact, error) {
	if m.ListReceivedFunc != nil {
		return m.ListReceivedFunc(ctx, accountID)
	}
	return nil, nil
}

func (m *mockArtifactService) Purchase(ctx context.Context, buyerID, artifactID uuid.UUID, amountCents int64) (*models.Purchase, error) {
	if m.PurchaseFunc != nil {
		return m.PurchaseFunc(ctx, buyerID, artifactID, amountCents)
	}
	return nil, nil
}
