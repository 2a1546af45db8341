package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

const sessionKeyPrefix = "session:"

var ErrSessionNotFound = errors.New("session not found")

// SessionService resolves session tokens issued by the auth provider. Tokens
// are stored in Redis by hash, with the account id as the value.
type SessionService struct {
	store KeyValueStore
}

func NewSessionService(store KeyValueStore) *SessionService {
	return &SessionService{store: store}
}

func (s *SessionService) ValidateSession(ctx context.Context, token string) (uuid.UUID, error) {
	if token == "" || s.store == nil {
		return uuid.Nil, ErrSessionNotFound
	}

	val, err := s.store.Get(ctx, sessionKey(token))
	if errors.Is(err, ErrCacheMiss) {
		return uuid.Nil, ErrSessionNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("looking up session: %w", err)
	}

	accountID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, ErrSessionNotFound
	}
	return accountID, nil
}

func sessionKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return sessionKeyPrefix + hex.EncodeToString(sum[:])
}
