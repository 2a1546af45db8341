package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/models"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

type ArtifactHandler struct {
	artifactService services.ArtifactServiceInterface
}

func NewArtifactHandler(artifactService services.ArtifactServiceInterface) *ArtifactHandler {
	return &ArtifactHandler{artifactService: artifactService}
}

type CreateArtifactRequest struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type ShareArtifactRequest struct {
	RecipientID string `json:"recipient_id"`
}

type PurchaseArtifactRequest struct {
	AmountCents int64 `json:"amount_cents"`
}

type ArtifactListResponse struct {
	Artifacts []models.Artifact `json:"artifacts"`
}

type ReceivedListResponse struct {
	Artifacts []models.ReceivedArtifact `json:"artifacts"`
}

func (h *ArtifactHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req CreateArtifactRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	artifact, err := h.artifactService.Create(r.Context(), accountID, models.CreateArtifactParams{
		URL:    req.URL,
		Width:  req.Width,
		Height: req.Height,
	})
	if errors.Is(err, services.ErrInvalidArtifact) {
		writeError(w, http.StatusBadRequest, "Artifact needs an http(s) URL and positive dimensions")
		return
	}
	if err != nil {
		writeInternalError(w, r, "creating artifact", err)
		return
	}

	writeJSON(w, http.StatusCreated, artifact)
}

func (h *ArtifactHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	artifacts, err := h.artifactService.ListForAccount(r.Context(), accountID)
	if err != nil {
		writeInternalError(w, r, "listing artifacts", err)
		return
	}

	writeJSON(w, http.StatusOK, ArtifactListResponse{Artifacts: artifacts})
}

func (h *ArtifactHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	artifactID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid artifact ID")
		return
	}

	artifact, err := h.artifactService.GetForAccount(r.Context(), accountID, artifactID)
	if errors.Is(err, services.ErrArtifactNotFound) {
		writeError(w, http.StatusNotFound, "Artifact not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting artifact", err)
		return
	}

	writeJSON(w, http.StatusOK, artifact)
}

func (h *ArtifactHandler) Share(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	artifactID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid artifact ID")
		return
	}

	var req ShareArtifactRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipient ID")
		return
	}

	err = h.artifactService.Share(r.Context(), accountID, recipientID, artifactID)
	switch {
	case errors.Is(err, services.ErrNotFriends):
		writeError(w, http.StatusForbidden, "You can only share with friends")
		return
	case errors.Is(err, services.ErrArtifactNotFound):
		writeError(w, http.StatusNotFound, "Artifact not found")
		return
	case errors.Is(err, services.ErrAlreadyShared):
		writeError(w, http.StatusConflict, "Your friend already has this artifact")
		return
	case err != nil:
		writeInternalError(w, r, "sharing artifact", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Artifact shared"})
}

func (h *ArtifactHandler) ListReceived(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	received, err := h.artifactService.ListReceived(r.Context(), accountID)
	if err != nil {
		writeInternalError(w, r, "listing received artifacts", err)
		return
	}

	writeJSON(w, http.StatusOK, ReceivedListResponse{Artifacts: received})
}

func (h *ArtifactHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	artifactID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid artifact ID")
		return
	}

	var req PurchaseArtifactRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	purchase, err := h.artifactService.Purchase(r.Context(), accountID, artifactID, req.AmountCents)
	switch {
	case errors.Is(err, services.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, "Amount cannot be negative")
		return
	case errors.Is(err, services.ErrNotReceived):
		writeError(w, http.StatusNotFound, "Artifact was not shared with you")
		return
	case err != nil:
		writeInternalError(w, r, "purchasing artifact", err)
		return
	}

	writeJSON(w, http.StatusCreated, purchase)
}
