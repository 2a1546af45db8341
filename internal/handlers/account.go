package handlers

import (
	"errors"
	"net/http"

	"github.com/HammerMeetNail/fridgemate/internal/models"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

type AccountHandler struct {
	accountService services.AccountServiceInterface
}

func NewAccountHandler(accountService services.AccountServiceInterface) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

type CreateAccountRequest struct {
	DisplayName string `json:"display_name"`
}

// Create registers the account for the session's subject.
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req CreateAccountRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.accountService.Create(r.Context(), models.CreateAccountParams{
		ID:          accountID,
		DisplayName: req.DisplayName,
	})
	if errors.Is(err, services.ErrInvalidDisplayName) {
		writeError(w, http.StatusBadRequest, "Display name must be 1-100 characters")
		return
	}
	if errors.Is(err, services.ErrAccountExists) {
		writeError(w, http.StatusConflict, "Account already exists")
		return
	}
	if err != nil {
		writeInternalError(w, r, "creating account", err)
		return
	}

	writeJSON(w, http.StatusCreated, account)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	account, err := h.accountService.GetByID(r.Context(), accountID)
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting account", err)
		return
	}

	writeJSON(w, http.StatusOK, account)
}
