package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/services"
)

type FridgeHandler struct {
	fridgeService services.FridgeServiceInterface
}

func NewFridgeHandler(fridgeService services.FridgeServiceInterface) *FridgeHandler {
	return &FridgeHandler{fridgeService: fridgeService}
}

type PlaceArtifactRequest struct {
	ArtifactID string `json:"artifact_id"`
	Slot       *int   `json:"slot"`
}

func (h *FridgeHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	fridge, err := h.fridgeService.GetFridge(r.Context(), accountID)
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting fridge", err)
		return
	}

	writeJSON(w, http.StatusOK, fridge)
}

func (h *FridgeHandler) Place(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req PlaceArtifactRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	artifactID, err := uuid.Parse(req.ArtifactID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid artifact ID")
		return
	}
	if req.Slot == nil {
		writeError(w, http.StatusBadRequest, "Slot is required")
		return
	}

	fridge, err := h.fridgeService.PlaceArtifact(r.Context(), accountID, artifactID, *req.Slot)
	switch {
	case errors.Is(err, services.ErrSlotOutOfRange):
		writeError(w, http.StatusBadRequest, "Slot index out of range")
		return
	case errors.Is(err, services.ErrArtifactNotFound):
		writeError(w, http.StatusNotFound, "Artifact not found")
		return
	case errors.Is(err, services.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found")
		return
	case errors.Is(err, services.ErrAlreadyPlaced):
		writeError(w, http.StatusConflict, "Artifact is already on the fridge")
		return
	case errors.Is(err, services.ErrSlotOccupied):
		writeError(w, http.StatusConflict, "Slot is already occupied")
		return
	case err != nil:
		writeInternalError(w, r, "placing artifact", err)
		return
	}

	writeJSON(w, http.StatusCreated, fridge)
}

func (h *FridgeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	artifactID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid artifact ID")
		return
	}

	fridge, err := h.fridgeService.RemoveArtifact(r.Context(), accountID, artifactID)
	if errors.Is(err, services.ErrNotPlaced) {
		writeError(w, http.StatusNotFound, "Artifact is not on the fridge")
		return
	}
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "removing artifact from fridge", err)
		return
	}

	writeJSON(w, http.StatusOK, fridge)
}
