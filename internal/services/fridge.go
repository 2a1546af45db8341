package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/metrics"
	"github.com/HammerMeetNail/fridgemate/internal/models"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrAlreadyPlaced    = errors.New("artifact is already on the fridge")
	ErrSlotOutOfRange   = errors.New("slot index out of range")
	ErrSlotOccupied     = errors.New("slot is already occupied")
	ErrNotPlaced        = errors.New("artifact is not on the fridge")
)

type FridgeService struct {
	db     DB
	layout models.Layout
}

func NewFridgeService(db DB, layout models.Layout) *FridgeService {
	if layout.Capacity <= 0 {
		layout = models.DefaultLayout
	}
	return &FridgeService{db: db, layout: layout}
}

// Layout returns the grid this service places into.
func (s *FridgeService) Layout() models.Layout {
	return s.layout
}

// PlaceArtifact pins artifactID to slot on accountID's fridge.
func (s *FridgeService) PlaceArtifact(ctx context.Context, accountID, artifactID uuid.UUID, slot int) (*models.Fridge, error) {
	fridge, err := s.place(ctx, accountID, artifactID, slot)
	metrics.RecordPlacement(placementOutcome(err))
	return fridge, err
}

func (s *FridgeService) place(ctx context.Context, accountID, artifactID uuid.UUID, slot int) (*models.Fridge, error) {
	if !s.layout.InRange(slot) {
		return nil, ErrSlotOutOfRange
	}

	// Only artwork the account created or bought can go on its fridge.
	owned, err := accountHasArtifact(ctx, s.db, accountID, artifactID, false)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrArtifactNotFound
	}

	var placements []models.FridgeSlot
	err = withTx(ctx, s.db, func(tx Tx) error {
		current, err := lockFridge(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if models.FindArtifact(current, artifactID) >= 0 {
			return ErrAlreadyPlaced
		}
		if models.SlotOccupied(current, slot) {
			return ErrSlotOccupied
		}

		pos := s.layout.Positions()[slot]
		placements = append(current, models.FridgeSlot{
			ArtifactID: artifactID,
			Slot:       slot,
			X:          pos.Left,
			Y:          pos.Top,
			Width:      s.layout.ItemSize,
			Height:     s.layout.ItemSize,
		})
		return saveFridge(ctx, tx, accountID, placements)
	})
	if err != nil {
		return nil, err
	}

	return s.render(ctx, accountID, placements)
}

// GetFridge renders accountID's fridge against the current layout.
func (s *FridgeService) GetFridge(ctx context.Context, accountID uuid.UUID) (*models.Fridge, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, "SELECT fridge FROM accounts WHERE id = $1", accountID).Scan(&raw)
	if isNoRows(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting fridge: %w", err)
	}
	placements, err := decodeFridge(raw)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, accountID, placements)
}

// RemoveArtifact takes artifactID off accountID's fridge.
func (s *FridgeService) RemoveArtifact(ctx context.Context, accountID, artifactID uuid.UUID) (*models.Fridge, error) {
	var placements []models.FridgeSlot
	err := withTx(ctx, s.db, func(tx Tx) error {
		current, err := lockFridge(ctx, tx, accountID)
		if err != nil {
			return err
		}
		idx := models.FindArtifact(current, artifactID)
		if idx < 0 {
			return ErrNotPlaced
		}
		placements = append(current[:idx:idx], current[idx+1:]...)
		return saveFridge(ctx, tx, accountID, placements)
	})
	if err != nil {
		return nil, err
	}
	return s.render(ctx, accountID, placements)
}

func (s *FridgeService) render(ctx context.Context, accountID uuid.UUID, placements []models.FridgeSlot) (*models.Fridge, error) {
	urls := make(map[uuid.UUID]string, len(placements))
	if len(placements) > 0 {
		ids := make([]uuid.UUID, len(placements))
		for i, p := range placements {
			ids[i] = p.ArtifactID
		}

		rows, err := s.db.Query(ctx, "SELECT id, url FROM artifacts WHERE id = ANY($1)", ids)
		if err != nil {
			return nil, fmt.Errorf("loading fridge artifacts: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var id uuid.UUID
			var url string
			if err := rows.Scan(&id, &url); err != nil {
				return nil, fmt.Errorf("scanning fridge artifact: %w", err)
			}
			urls[id] = url
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("loading fridge artifacts: %w", err)
		}
	}
	return models.BuildFridge(accountID, s.layout, placements, urls), nil
}

func lockFridge(ctx context.Context, tx Tx, accountID uuid.UUID) ([]models.FridgeSlot, error) {
	var raw []byte
	err := tx.QueryRow(ctx,
		"SELECT fridge FROM accounts WHERE id = $1 FOR UPDATE",
		accountID,
	).Scan(&raw)
	if isNoRows(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("locking fridge: %w", err)
	}
	return decodeFridge(raw)
}

func saveFridge(ctx context.Context, tx Tx, accountID uuid.UUID, placements []models.FridgeSlot) error {
	data, err := encodeFridge(placements)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx,
		"UPDATE accounts SET fridge = $2, updated_at = NOW() WHERE id = $1",
		accountID, data,
	)
	if err != nil {
		return fmt.Errorf("saving fridge: %w", err)
	}
	return nil
}

func placementOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrSlotOutOfRange):
		return "slot_out_of_range"
	case errors.Is(err, ErrArtifactNotFound):
		return "artifact_not_found"
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyPlaced):
		return "already_placed"
	case errors.Is(err, ErrSlotOccupied):
		return "slot_occupied"
	default:
		return "store_error"
	}
}
