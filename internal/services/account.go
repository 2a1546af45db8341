package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/fridgemate/internal/models"
)

const maxDisplayNameLength = 100

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrAccountExists      = errors.New("account already exists")
	ErrInvalidDisplayName = errors.New("display name must be 1-100 characters")
)

type AccountService struct {
	db DB
}

func NewAccountService(db DB) *AccountService {
	return &AccountService{db: db}
}

func (s *AccountService) Create(ctx context.Context, params models.CreateAccountParams) (*models.Account, error) {
	name := strings.TrimSpace(params.DisplayName)
	if name == "" || utf8.RuneCountInString(name) > maxDisplayNameLength {
		return nil, ErrInvalidDisplayName
	}

	account := &models.Account{Friends: []uuid.UUID{}, Fridge: []models.FridgeSlot{}}
	err := s.db.QueryRow(ctx,
		`INSERT INTO accounts (id, display_name)
		 VALUES ($1, $2)
		 ON CONFLICT (id) DO NOTHING
		 RETURNING id, display_name, created_at, updated_at`,
		params.ID, name,
	).Scan(&account.ID, &account.DisplayName, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating account: %w", err)
	}
	return account, nil
}

func (s *AccountService) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	account := &models.Account{}
	var fridge []byte
	err := s.db.QueryRow(ctx,
		`SELECT id, display_name, friend_code, friend_code_expires_at, fridge, created_at, updated_at
		 FROM accounts WHERE id = $1`,
		id,
	).Scan(&account.ID, &account.DisplayName, &account.FriendCode, &account.FriendCodeExpiresAt, &fridge, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting account: %w", err)
	}

	account.Fridge, err = decodeFridge(fridge)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT friend_id FROM account_friends WHERE account_id = $1 ORDER BY created_at`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friend ids: %w", err)
	}
	defer rows.Close()

	account.Friends = []uuid.UUID{}
	for rows.Next() {
		var friendID uuid.UUID
		if err := rows.Scan(&friendID); err != nil {
			return nil, fmt.Errorf("scanning friend id: %w", err)
		}
		account.Friends = append(account.Friends, friendID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing friend ids: %w", err)
	}

	return account, nil
}

func decodeFridge(raw []byte) ([]models.FridgeSlot, error) {
	slots := []models.FridgeSlot{}
	if len(raw) == 0 {
		return slots, nil
	}
	if err := json.Unmarshal(raw, &slots); err != nil {
		return nil, fmt.Errorf("decoding fridge: %w", err)
	}
	return slots, nil
}

func encodeFridge(slots []models.FridgeSlot) ([]byte, error) {
	if slots == nil {
		slots = []models.FridgeSlot{}
	}
	data, err := json.Marshal(slots)
	if err != nil {
		return nil, fmt.Errorf("encoding fridge: %w", err)
	}
	return data, nil
}
