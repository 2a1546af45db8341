// Package testutil provides fixtures and HTTP helpers shared by package tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/models"
)

// FixedTime is a stable clock reading for fixtures.
var FixedTime = time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)

// NewAccount returns an account with no friends, code, or placements.
func NewAccount(displayName string) *models.Account {
	return &models.Account{
		ID:          uuid.New(),
		DisplayName: displayName,
		Friends:     []uuid.UUID{},
		Fridge:      []models.FridgeSlot{},
		CreatedAt:   FixedTime,
		UpdatedAt:   FixedTime,
	}
}

// NewArtifact returns an artifact owned by ownerID.
func NewArtifact(ownerID uuid.UUID) *models.Artifact {
	id := uuid.New()
	return &models.Artifact{
		ID:              id,
		URL:             "https://img.example/" + id.String() + ".png",
		OwnerID:         ownerID,
		CreatedAt:       FixedTime,
		Width:           640,
		Height:          480,
		PurchaseHistory: []models.Purchase{},
	}
}

// Placement returns the record PlaceArtifact would store for artifactID at slot.
func Placement(layout models.Layout, artifactID uuid.UUID, slot int) models.FridgeSlot {
	pos := layout.Positions()[slot]
	return models.FridgeSlot{
		ArtifactID: artifactID,
		Slot:       slot,
		X:          pos.Left,
		Y:          pos.Top,
		Width:      layout.ItemSize,
		Height:     layout.ItemSize,
	}
}

// JSONRequest builds a request whose body is data encoded as JSON.
func JSONRequest(t *testing.T, method, path string, data interface{}) *http.Request {
	t.Helper()
	body, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertStatusCode checks if the response has the expected status code.
func AssertStatusCode(t *testing.T, rr *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if rr.Code != expected {
		t.Errorf("expected status %d, got %d. Body: %s", expected, rr.Code, rr.Body.String())
	}
}
