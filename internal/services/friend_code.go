package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/fridgemate/internal/logging"
	"github.com/HammerMeetNail/fridgemate/internal/metrics"
	"github.com/HammerMeetNail/fridgemate/internal/models"
)

// maxCodeAttempts bounds regeneration when a fresh code collides with another
// account's unexpired code.
const maxCodeAttempts = 5

var (
	ErrInvalidCode        = errors.New("invalid friend code")
	ErrCodeExpired        = errors.New("friend code has expired")
	ErrSelfFriend         = errors.New("cannot add yourself as a friend")
	ErrAlreadyFriends     = errors.New("already friends with this account")
	ErrNotFriends         = errors.New("not friends with this account")
	ErrCodeSpaceExhausted = errors.New("could not issue a unique friend code")
)

// CodeStatus describes an account's current friend code for countdown display.
type CodeStatus struct {
	Code          string     `json:"code,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Valid         bool       `json:"valid"`
	TimeRemaining string     `json:"time_remaining"`
}

type FriendCodeService struct {
	db     DB
	ttl    time.Duration
	now    func() time.Time
	random io.Reader
	logger *logging.Logger
}

func NewFriendCodeService(db DB, ttl time.Duration) *FriendCodeService {
	if ttl <= 0 {
		ttl = models.FriendCodeTTL
	}
	return &FriendCodeService{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		random: rand.Reader,
		logger: logging.Default,
	}
}

// SetLogger replaces the logger used for store inconsistencies.
func (s *FriendCodeService) SetLogger(logger *logging.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// GenerateCode issues a new code for accountID, replacing any previous one.
func (s *FriendCodeService) GenerateCode(ctx context.Context, accountID uuid.UUID) (*models.FriendCode, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := newFriendCode(s.random)
		if err != nil {
			return nil, err
		}

		var taken bool
		err = s.db.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM accounts
				WHERE friend_code = $1 AND id <> $2 AND friend_code_expires_at > $3
			)`,
			code, accountID, now,
		).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("checking friend code collision: %w", err)
		}
		if taken {
			s.logger.Warn("Friend code collision, regenerating", map[string]interface{}{
				"account_id": accountID.String(),
				"attempt":    attempt,
			})
			continue
		}

		result, err := s.db.Exec(ctx,
			`UPDATE accounts
			 SET friend_code = $2, friend_code_expires_at = $3, updated_at = NOW()
			 WHERE id = $1`,
			accountID, code, expiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("storing friend code: %w", err)
		}
		if result.RowsAffected() == 0 {
			return nil, ErrAccountNotFound
		}

		metrics.RecordCodeGenerated()
		return &models.FriendCode{Code: code, ExpiresAt: expiresAt}, nil
	}

	return nil, ErrCodeSpaceExhausted
}

// GetCodeStatus reports the account's current code, if still valid.
func (s *FriendCodeService) GetCodeStatus(ctx context.Context, accountID uuid.UUID) (*CodeStatus, error) {
	var code *string
	var expiresAt *time.Time
	err := s.db.QueryRow(ctx,
		"SELECT friend_code, friend_code_expires_at FROM accounts WHERE id = $1",
		accountID,
	).Scan(&code, &expiresAt)
	if isNoRows(err) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting friend code: %w", err)
	}

	now := s.now()
	status := &CodeStatus{
		Valid:         IsCodeValid(expiresAt, now),
		TimeRemaining: TimeRemaining(expiresAt, now),
	}
	if status.Valid && code != nil {
		status.Code = *code
		status.ExpiresAt = expiresAt
	}
	return status, nil
}

type codeHolder struct {
	id          uuid.UUID
	displayName string
	code        *string
	expiresAt   *time.Time
}

// RedeemCode links callerID and the owner of code as mutual friends.
// code must already be upper-cased by the caller. A successful redemption
// consumes the code.
func (s *FriendCodeService) RedeemCode(ctx context.Context, callerID uuid.UUID, code string) (*models.FriendSummary, error) {
	friend, err := s.redeem(ctx, callerID, code)
	metrics.RecordRedemption(redemptionOutcome(err))
	return friend, err
}

func (s *FriendCodeService) redeem(ctx context.Context, callerID uuid.UUID, code string) (*models.FriendSummary, error) {
	if !models.IsValidFriendCode(code) {
		return nil, ErrInvalidCode
	}

	var friend *models.FriendSummary
	err := withTx(ctx, s.db, func(tx Tx) error {
		holders, err := s.findCodeHolders(ctx, tx, code)
		if err != nil {
			return err
		}
		if len(holders) == 0 {
			return ErrInvalidCode
		}
		if len(holders) > 1 {
			ids := make([]string, len(holders))
			for i, h := range holders {
				ids[i] = h.id.String()
			}
			s.logger.Warn("Friend code held by multiple accounts", map[string]interface{}{
				"account_ids": ids,
			})
		}
		owner := holders[0]

		locked, err := lockAccounts(ctx, tx, callerID, owner.id)
		if err != nil {
			return err
		}
		if _, ok := locked[callerID]; !ok {
			return ErrAccountNotFound
		}
		current, ok := locked[owner.id]
		if !ok || current.code == nil || *current.code != code {
			// Regenerated or consumed between lookup and lock.
			return ErrInvalidCode
		}

		if !IsCodeValid(current.expiresAt, s.now()) {
			return ErrCodeExpired
		}
		if owner.id == callerID {
			return ErrSelfFriend
		}

		var exists bool
		err = tx.QueryRow(ctx,
			`SELECT EXISTS(
				SELECT 1 FROM account_friends
				WHERE account_id = $1 AND friend_id = $2
			)`,
			callerID, owner.id,
		).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking friendship: %w", err)
		}
		if exists {
			return ErrAlreadyFriends
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO account_friends (account_id, friend_id)
			 VALUES ($1, $2), ($2, $1)
			 ON CONFLICT DO NOTHING`,
			callerID, owner.id,
		)
		if err != nil {
			return fmt.Errorf("inserting friendship: %w", err)
		}

		_, err = tx.Exec(ctx,
			`UPDATE accounts
			 SET friend_code = NULL, friend_code_expires_at = NULL, updated_at = NOW()
			 WHERE id = $1 AND friend_code = $2`,
			owner.id, code,
		)
		if err != nil {
			return fmt.Errorf("consuming friend code: %w", err)
		}

		friend = &models.FriendSummary{ID: owner.id, DisplayName: owner.displayName}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return friend, nil
}

func (s *FriendCodeService) findCodeHolders(ctx context.Context, q Querier, code string) ([]codeHolder, error) {
	rows, err := q.Query(ctx,
		`SELECT id, display_name FROM accounts
		 WHERE friend_code = $1
		 ORDER BY id`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("looking up friend code: %w", err)
	}
	defer rows.Close()

	var holders []codeHolder
	for rows.Next() {
		var h codeHolder
		if err := rows.Scan(&h.id, &h.displayName); err != nil {
			return nil, fmt.Errorf("scanning code holder: %w", err)
		}
		holders = append(holders, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("looking up friend code: %w", err)
	}
	return holders, nil
}

// lockAccounts row-locks the given accounts in id order and returns their code state.
func lockAccounts(ctx context.Context, tx Tx, ids ...uuid.UUID) (map[uuid.UUID]codeHolder, error) {
	rows, err := tx.Query(ctx,
		`SELECT id, friend_code, friend_code_expires_at FROM accounts
		 WHERE id = ANY($1)
		 ORDER BY id
		 FOR UPDATE`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("locking accounts: %w", err)
	}
	defer rows.Close()

	locked := make(map[uuid.UUID]codeHolder, len(ids))
	for rows.Next() {
		var h codeHolder
		if err := rows.Scan(&h.id, &h.code, &h.expiresAt); err != nil {
			return nil, fmt.Errorf("scanning locked account: %w", err)
		}
		locked[h.id] = h
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("locking accounts: %w", err)
	}
	return locked, nil
}

// ListFriends returns accountID's friends ordered by display name.
func (s *FriendCodeService) ListFriends(ctx context.Context, accountID uuid.UUID) ([]models.FriendSummary, error) {
	rows, err := s.db.Query(ctx,
		`SELECT a.id, a.display_name, af.created_at
		 FROM account_friends af
		 JOIN accounts a ON a.id = af.friend_id
		 WHERE af.account_id = $1
		 ORDER BY a.display_name, a.id`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []models.FriendSummary{}
	for rows.Next() {
		var f models.FriendSummary
		if err := rows.Scan(&f.ID, &f.DisplayName, &f.Since); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	return friends, nil
}

// RemoveFriend deletes both directions of the friendship.
func (s *FriendCodeService) RemoveFriend(ctx context.Context, accountID, friendID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		`DELETE FROM account_friends
		 WHERE (account_id = $1 AND friend_id = $2)
		    OR (account_id = $2 AND friend_id = $1)`,
		accountID, friendID,
	)
	if err != nil {
		return fmt.Errorf("removing friend: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrNotFriends
	}
	return nil
}

// ClearExpiredCodes nulls out every code whose expiry has passed and returns
// how many accounts were touched.
func (s *FriendCodeService) ClearExpiredCodes(ctx context.Context) (int64, error) {
	result, err := s.db.Exec(ctx,
		`UPDATE accounts
		 SET friend_code = NULL, friend_code_expires_at = NULL, updated_at = NOW()
		 WHERE friend_code IS NOT NULL AND friend_code_expires_at <= $1`,
		s.now(),
	)
	if err != nil {
		return 0, fmt.Errorf("clearing expired friend codes: %w", err)
	}
	return result.RowsAffected(), nil
}

// IsCodeValid reports whether a code expiring at expiresAt is still redeemable at now.
func IsCodeValid(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && expiresAt.After(now)
}

// TimeRemaining formats the time left until expiresAt as "M:SS", or "Expired".
func TimeRemaining(expiresAt *time.Time, now time.Time) string {
	if expiresAt == nil {
		return "Expired"
	}
	remaining := expiresAt.Sub(now)
	if remaining <= 0 {
		return "Expired"
	}
	total := int64(remaining / time.Second)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// newFriendCode draws FriendCodeLength characters uniformly from FriendCodeAlphabet.
func newFriendCode(r io.Reader) (string, error) {
	alphabet := models.FriendCodeAlphabet
	// Largest multiple of len(alphabet) that fits in a byte; higher bytes are rejected.
	limit := byte(256 - 256%len(alphabet))

	code := make([]byte, 0, models.FriendCodeLength)
	buf := make([]byte, models.FriendCodeLength*2)
	for len(code) < models.FriendCodeLength {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("generating friend code: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			code = append(code, alphabet[int(b)%len(alphabet)])
			if len(code) == models.FriendCodeLength {
				break
			}
		}
	}
	return string(code), nil
}

func redemptionOutcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrInvalidCode):
		return "invalid_code"
	case errors.Is(err, ErrCodeExpired):
		return "code_expired"
	case errors.Is(err, ErrSelfFriend):
		return "self_friend"
	case errors.Is(err, ErrAlreadyFriends):
		return "already_friends"
	case errors.Is(err, ErrAccountNotFound):
		return "not_found"
	default:
		return "store_error"
	}
}
