package handlers

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const accountContextKey contextKey = "account_id"

func SetAccountIDInContext(ctx context.Context, accountID uuid.UUID) context.Context {
	return context.WithValue(ctx, accountContextKey, accountID)
}

// GetAccountIDFromContext returns the session's account id, if the request was authenticated.
func GetAccountIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(accountContextKey).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
