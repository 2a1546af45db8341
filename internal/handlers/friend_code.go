package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/HammerMeetNail/fridgemate/internal/models"
	"github.com/HammerMeetNail/fridgemate/internal/services"
)

type FriendCodeHandler struct {
	friendService services.FriendCodeServiceInterface
}

func NewFriendCodeHandler(friendService services.FriendCodeServiceInterface) *FriendCodeHandler {
	return &FriendCodeHandler{friendService: friendService}
}

type FriendCodeResponse struct {
	Code          string    `json:"code"`
	ExpiresAt     time.Time `json:"expires_at"`
	TimeRemaining string    `json:"time_remaining"`
}

type RedeemCodeRequest struct {
	Code string `json:"code"`
}

type RedeemCodeResponse struct {
	Friend  *models.FriendSummary `json:"friend"`
	Message string                `json:"message"`
}

type FriendListResponse struct {
	Friends []models.FriendSummary `json:"friends"`
}

func (h *FriendCodeHandler) GenerateCode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	code, err := h.friendService.GenerateCode(r.Context(), accountID)
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "generating friend code", err)
		return
	}

	writeJSON(w, http.StatusCreated, FriendCodeResponse{
		Code:          code.Code,
		ExpiresAt:     code.ExpiresAt,
		TimeRemaining: services.TimeRemaining(&code.ExpiresAt, time.Now()),
	})
}

func (h *FriendCodeHandler) GetCode(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	status, err := h.friendService.GetCodeStatus(r.Context(), accountID)
	if errors.Is(err, services.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "getting friend code", err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *FriendCodeHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req RedeemCodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	friend, err := h.friendService.RedeemCode(r.Context(), accountID, NormalizeFriendCode(req.Code))
	switch {
	case errors.Is(err, services.ErrInvalidCode):
		writeError(w, http.StatusNotFound, "Invalid friend code")
		return
	case errors.Is(err, services.ErrCodeExpired):
		writeError(w, http.StatusGone, "Friend code has expired")
		return
	case errors.Is(err, services.ErrSelfFriend):
		writeError(w, http.StatusBadRequest, "You cannot add yourself as a friend")
		return
	case errors.Is(err, services.ErrAlreadyFriends):
		writeError(w, http.StatusConflict, "You are already friends")
		return
	case errors.Is(err, services.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "Account not found")
		return
	case err != nil:
		writeInternalError(w, r, "redeeming friend code", err)
		return
	}

	writeJSON(w, http.StatusOK, RedeemCodeResponse{
		Friend:  friend,
		Message: "You are now friends with " + friend.DisplayName,
	})
}

func (h *FriendCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), accountID)
	if err != nil {
		writeInternalError(w, r, "listing friends", err)
		return
	}

	writeJSON(w, http.StatusOK, FriendListResponse{Friends: friends})
}

func (h *FriendCodeHandler) Remove(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}

	friendID, err := parsePathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	err = h.friendService.RemoveFriend(r.Context(), accountID, friendID)
	if errors.Is(err, services.ErrNotFriends) {
		writeError(w, http.StatusNotFound, "Friend not found")
		return
	}
	if err != nil {
		writeInternalError(w, r, "removing friend", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friend removed"})
}

// NormalizeFriendCode upper-cases a typed code and drops whitespace and dashes.
func NormalizeFriendCode(raw string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' {
			return -1
		}
		return unicode.ToUpper(r)
	}, raw)
}
