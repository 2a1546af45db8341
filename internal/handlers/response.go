package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/logging"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeInternalError logs err and responds with a generic 500.
func writeInternalError(w http.ResponseWriter, r *http.Request, action string, err error) {
	logging.Error("Error "+action, map[string]interface{}{
		"error":  err.Error(),
		"method": r.Method,
		"path":   r.URL.Path,
	})
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

// requireAccount returns the authenticated account id or writes a 401.
func requireAccount(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	accountID, ok := GetAccountIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return uuid.Nil, false
	}
	return accountID, true
}

func parsePathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func decodeBody(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
