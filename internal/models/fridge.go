package models

import (
	"github.com/google/uuid"
)

const (
	FridgeColumns   = 2
	FridgeTopOffset = 265
	// FridgeLeftOffset is the 10px fridge border plus 82px door padding.
	FridgeLeftOffset = 92
)

// Layout describes the fixed grid of display slots on a fridge door.
type Layout struct {
	Capacity int `json:"capacity"`
	ItemSize int `json:"item_size"`
	Gap      int `json:"gap"`
}

// DefaultLayout is three rows of two 100px slots.
var DefaultLayout = Layout{Capacity: 6, ItemSize: 100, Gap: 20}

// SlotPosition is the pixel offset of a slot's top-left corner.
type SlotPosition struct {
	Top  int `json:"top"`
	Left int `json:"left"`
}

// ComputeSlotPositions lays out capacity square slots row-major, FridgeColumns per row.
func ComputeSlotPositions(capacity, itemSize, gap int) []SlotPosition {
	if capacity <= 0 {
		return []SlotPosition{}
	}
	positions := make([]SlotPosition, capacity)
	step := itemSize + gap
	for i := 0; i < capacity; i++ {
		row := i / FridgeColumns
		col := i % FridgeColumns
		positions[i] = SlotPosition{
			Top:  FridgeTopOffset + row*step,
			Left: FridgeLeftOffset + col*step,
		}
	}
	return positions
}

// Positions returns the slot positions for this layout.
func (l Layout) Positions() []SlotPosition {
	return ComputeSlotPositions(l.Capacity, l.ItemSize, l.Gap)
}

// InRange reports whether slot addresses a position on this layout.
func (l Layout) InRange(slot int) bool {
	return slot >= 0 && slot < l.Capacity
}

// FridgeSlot is a persisted placement of an artifact on an account's fridge.
// X and Y are the slot's Left and Top at placement time; occupancy is decided by Slot.
type FridgeSlot struct {
	ArtifactID uuid.UUID `json:"artifact_id"`
	Slot       int       `json:"slot"`
	X          int       `json:"x"`
	Y          int       `json:"y"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
}

// FindArtifact returns the index of the placement holding artifactID, or -1.
func FindArtifact(slots []FridgeSlot, artifactID uuid.UUID) int {
	for i, s := range slots {
		if s.ArtifactID == artifactID {
			return i
		}
	}
	return -1
}

// SlotOccupied reports whether any placement uses slot.
func SlotOccupied(slots []FridgeSlot, slot int) bool {
	for _, s := range slots {
		if s.Slot == slot {
			return true
		}
	}
	return false
}

// FridgeView is one rendered slot of a fridge.
type FridgeView struct {
	Slot        int        `json:"slot"`
	Top         int        `json:"top"`
	Left        int        `json:"left"`
	Size        int        `json:"size"`
	Occupied    bool       `json:"occupied"`
	ArtifactID  *uuid.UUID `json:"artifact_id,omitempty"`
	ArtifactURL string     `json:"artifact_url,omitempty"`
}

// Fridge is an account's fridge rendered against the current layout.
// Orphaned holds placements whose slot no longer exists in the layout.
type Fridge struct {
	AccountID uuid.UUID    `json:"account_id"`
	Layout    Layout       `json:"layout"`
	Slots     []FridgeView `json:"slots"`
	Orphaned  []FridgeSlot `json:"orphaned,omitempty"`
}

// BuildFridge renders placements against layout. urls maps artifact ids to image URLs
// and may be nil.
func BuildFridge(accountID uuid.UUID, layout Layout, placements []FridgeSlot, urls map[uuid.UUID]string) *Fridge {
	positions := layout.Positions()
	f := &Fridge{
		AccountID: accountID,
		Layout:    layout,
		Slots:     make([]FridgeView, len(positions)),
	}
	for i, pos := range positions {
		f.Slots[i] = FridgeView{Slot: i, Top: pos.Top, Left: pos.Left, Size: layout.ItemSize}
	}
	for _, p := range placements {
		if !layout.InRange(p.Slot) {
			f.Orphaned = append(f.Orphaned, p)
			continue
		}
		view := &f.Slots[p.Slot]
		id := p.ArtifactID
		view.Occupied = true
		view.ArtifactID = &id
		view.ArtifactURL = urls[id]
	}
	return f
}
